package service

import "regexp"

// Canonical task id syntax (RFC 4122 textual form). References that do not
// match are treated as task names.
var taskIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ResolveDependency maps a task reference to a canonical id within the
// working set. An id-shaped reference resolves only if it exists in the id
// universe; otherwise the reference is tried as a name. The second return
// is false when the reference resolves to nothing — callers drop that
// dependency edge rather than failing the batch.
func ResolveDependency(ref string, nameToID map[string]string, idUniverse map[string]struct{}) (string, bool) {
	if taskIDPattern.MatchString(ref) {
		if _, ok := idUniverse[ref]; ok {
			return ref, true
		}
	}
	if id, ok := nameToID[ref]; ok {
		return id, true
	}
	return "", false
}
