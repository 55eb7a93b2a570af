package storage

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// ChangeEntry is one record in the append-only audit trail. Entries are
// content addressed: Hash covers the timestamp, message and the previous
// entry's hash, so the log forms a verifiable chain.
type ChangeEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prevHash"`
}

func entryHash(ts time.Time, message, prevHash string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s", ts.UnixMilli(), message, prevHash)))
	return hex.EncodeToString(sum[:])
}

// ChangeLog appends human-readable change records to a JSONL file. It is an
// advisory trail: callers treat every failure here as non-fatal.
type ChangeLog struct {
	path string
	mu   sync.Mutex
	prev string
}

// OpenChangeLog opens (or prepares to create) the log at path and recovers
// the tail hash so new entries continue the chain.
func OpenChangeLog(path string) (*ChangeLog, error) {
	cl := &ChangeLog{path: path}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return cl, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry ChangeEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		cl.prev = entry.Hash
	}
	return cl, scanner.Err()
}

// Append writes one entry tagged with the local time and message.
func (cl *ChangeLog) Append(message string) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	entry := ChangeEntry{
		Timestamp: now,
		Message:   message,
		PrevHash:  cl.prev,
		Hash:      entryHash(now, message, cl.prev),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(cl.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}

	cl.prev = entry.Hash
	return nil
}

// Entries reads the whole log in order. Lines that fail to parse are
// skipped; the log is a convenience trail, not a source of truth.
func (cl *ChangeLog) Entries() ([]ChangeEntry, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	f, err := os.Open(cl.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []ChangeEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry ChangeEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// Verify walks the chain and reports the first entry whose hash or link does
// not match.
func (cl *ChangeLog) Verify() error {
	entries, err := cl.Entries()
	if err != nil {
		return err
	}

	prev := ""
	for i, entry := range entries {
		if entry.PrevHash != prev {
			return fmt.Errorf("change log entry %d: prev hash mismatch", i)
		}
		if entry.Hash != entryHash(entry.Timestamp, entry.Message, entry.PrevHash) {
			return fmt.Errorf("change log entry %d: hash mismatch", i)
		}
		prev = entry.Hash
	}
	return nil
}
