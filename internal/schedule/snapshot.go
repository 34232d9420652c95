package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the persisted baseline a cycle diffs against. It is written
// after every cycle regardless of the diff outcome.
type Snapshot struct {
	Items       []Entry `json:"items"`
	GeneratedAt string  `json:"generated_at"`
}

// LoadSnapshot reads the previous snapshot from path. A missing file yields
// an empty collection and no error (first run). Both the wrapped
// {items, generated_at} form and a legacy bare array are accepted.
func LoadSnapshot(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err == nil && snap.Items != nil {
		return snap.Items, nil
	}
	var items []Entry
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return items, nil
}

// SaveSnapshot atomically persists items as the next baseline, stamped with
// the current UTC time.
func SaveSnapshot(path string, items []Entry, now time.Time) error {
	if items == nil {
		items = []Entry{}
	}
	snap := Snapshot{Items: items, GeneratedAt: now.UTC().Format(time.RFC3339)}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
