package audit

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// Verify checks the hash chain of the audit log at path. It returns nil
// for a valid or empty log, or an error describing the first violation.
func Verify(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	prev := genesisHash()
	var seq uint64
	for i, line := range splitLines(data) {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", i+1, err)
		}
		if e.Seq != seq+1 {
			return fmt.Errorf("line %d: sequence gap: expected %d, got %d", i+1, seq+1, e.Seq)
		}
		if e.PrevHash != prev {
			return fmt.Errorf("line %d: prev_hash mismatch: expected %s, got %s", i+1, short(prev), short(e.PrevHash))
		}
		if want := computeHash(e); e.Hash != want {
			return fmt.Errorf("line %d: hash mismatch: expected %s, got %s", i+1, short(want), short(e.Hash))
		}
		prev, seq = e.Hash, e.Seq
	}
	return nil
}

// Tail returns the last n entries of the audit log. Lines that do not
// decode are skipped.
func Tail(fs afero.Fs, path string, n int) ([]Entry, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	lines := splitLines(data)
	if n > len(lines) {
		n = len(lines)
	}
	if n < 0 {
		n = 0
	}

	entries := make([]Entry, 0, n)
	for _, line := range lines[len(lines)-n:] {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func short(h string) string {
	if len(h) > 16 {
		return h[:16] + "..."
	}
	return h
}
