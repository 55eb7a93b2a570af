package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDependency(t *testing.T) {
	const knownID = "1b671a64-40d5-491e-99b0-da01ff1f3341"
	const unknownID = "9e107d9d-372b-4c81-a2f0-45f5b0c18a01"

	nameToID := map[string]string{
		"setup database": knownID,
		unknownID:        "resolved-by-name",
	}
	idUniverse := map[string]struct{}{knownID: {}}

	t.Run("id shaped and known resolves as id", func(t *testing.T) {
		id, ok := ResolveDependency(knownID, nameToID, idUniverse)
		assert.True(t, ok)
		assert.Equal(t, knownID, id)
	})

	t.Run("id shaped but unknown falls back to name lookup", func(t *testing.T) {
		id, ok := ResolveDependency(unknownID, nameToID, idUniverse)
		assert.True(t, ok)
		assert.Equal(t, "resolved-by-name", id)
	})

	t.Run("name resolves to id", func(t *testing.T) {
		id, ok := ResolveDependency("setup database", nameToID, idUniverse)
		assert.True(t, ok)
		assert.Equal(t, knownID, id)
	})

	t.Run("unresolvable reference", func(t *testing.T) {
		_, ok := ResolveDependency("no such task", nameToID, idUniverse)
		assert.False(t, ok)
	})

	t.Run("uppercase uuid treated as id shaped", func(t *testing.T) {
		upper := "1B671A64-40D5-491E-99B0-DA01FF1F3341"
		_, ok := ResolveDependency(upper, map[string]string{}, map[string]struct{}{})
		assert.False(t, ok)
	})
}
