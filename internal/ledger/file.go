package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bytedance/sonic"
)

// wireSnapshot is the on-disk shape: row index as a decimal string key.
type wireSnapshot map[string]map[string]Entry

func toWire(s Snapshot) wireSnapshot {
	w := make(wireSnapshot, len(s))
	for row, fields := range s {
		w[strconv.Itoa(row)] = fields
	}
	return w
}

func fromWire(w wireSnapshot) (Snapshot, error) {
	s := make(Snapshot, len(w))
	for k, fields := range w {
		row, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("ledger: bad row key %q: %w", k, err)
		}
		if fields == nil {
			continue
		}
		s[row] = fields
	}
	return s, nil
}

// FileBackend stores snapshots as a single JSON document.
type FileBackend struct {
	Path string
}

// NewFileBackend returns a backend writing to path.
func NewFileBackend(path string) *FileBackend { return &FileBackend{Path: path} }

// Load reads the JSON document. A missing file is an empty snapshot.
func (f *FileBackend) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return make(Snapshot), nil
	}
	if err != nil {
		return nil, err
	}
	var w wireSnapshot
	if err := sonic.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("ledger: decode %s: %w", f.Path, err)
	}
	return fromWire(w)
}

// Save writes the snapshot to a temp file and renames it over the target, so a
// crash mid-write leaves the previous checkpoint intact.
func (f *FileBackend) Save(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(toWire(s))
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Remove deletes the file if present.
func (f *FileBackend) Remove(context.Context) error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
