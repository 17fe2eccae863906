// Package ledger holds the progress store: a two-level mapping from task
// identity (row, field) to its recorded outcome, with a pluggable durable
// backend used for checkpoints and resume.
package ledger

import (
	"context"
	"errors"
	"sync"
)

// Status is the label recorded for a resolved task.
type Status string

const (
	StatusSuccess      Status = "Success"
	StatusNoImage      Status = "No Image"
	StatusFailed       Status = "Failed"
	StatusServiceError Status = "API Error"
)

// ErrUnknownStatus is returned by ParseStatus for unrecognized labels.
var ErrUnknownStatus = errors.New("ledger: unknown status")

// ParseStatus converts a label into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusSuccess, StatusNoImage, StatusFailed, StatusServiceError:
		return Status(s), nil
	default:
		return "", ErrUnknownStatus
	}
}

// Key identifies a task within a run.
type Key struct {
	Row   int
	Field string
}

// Entry is the recorded outcome of one task. Value is empty unless Status is
// StatusSuccess.
type Entry struct {
	Value  string `json:"value"`
	Status Status `json:"status"`
	Detail string `json:"detail"`
}

// Snapshot is a point-in-time copy of the store, keyed by row then field.
type Snapshot map[int]map[string]Entry

// Get returns the entry recorded for k.
func (s Snapshot) Get(k Key) (Entry, bool) {
	e, ok := s[k.Row][k.Field]
	return e, ok
}

// Len counts recorded entries across all rows.
func (s Snapshot) Len() int {
	n := 0
	for _, fields := range s {
		n += len(fields)
	}
	return n
}

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for row, fields := range s {
		cp := make(map[string]Entry, len(fields))
		for f, e := range fields {
			cp[f] = e
		}
		out[row] = cp
	}
	return out
}

// Backend persists snapshots between runs.
type Backend interface {
	// Load returns the last saved snapshot. A missing backing yields an empty
	// snapshot and a nil error.
	Load(ctx context.Context) (Snapshot, error)
	// Save replaces the durable copy with s.
	Save(ctx context.Context, s Snapshot) error
	// Remove deletes the durable copy. Removing a missing backing is not an error.
	Remove(ctx context.Context) error
}

// Ledger is the in-memory progress store. It is safe for concurrent use;
// callers still keep a single writer so counters stay consistent with it.
type Ledger struct {
	mu      sync.RWMutex
	rows    Snapshot
	backend Backend
}

// New creates an empty ledger backed by b. A nil backend keeps everything in memory.
func New(b Backend) *Ledger {
	return &Ledger{rows: make(Snapshot), backend: b}
}

// Load replaces the in-memory state with the backend's snapshot. On any
// failure the ledger is left empty and the error is returned for reporting
// only; callers continue the run.
func (l *Ledger) Load(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = make(Snapshot)
	if l.backend == nil {
		return 0, nil
	}
	s, err := l.backend.Load(ctx)
	if err != nil {
		return 0, err
	}
	for row, fields := range s {
		if row < 0 || len(fields) == 0 {
			continue
		}
		cp := make(map[string]Entry, len(fields))
		for f, e := range fields {
			cp[f] = e
		}
		l.rows[row] = cp
	}
	return l.rows.Len(), nil
}

// Done reports whether k already has a recorded outcome.
func (l *Ledger) Done(k Key) bool {
	l.mu.RLock()
	_, ok := l.rows.Get(k)
	l.mu.RUnlock()
	return ok
}

// Put records e for k. It returns false and leaves the store unchanged when
// k was already recorded.
func (l *Ledger) Put(k Key, e Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	fields, ok := l.rows[k.Row]
	if !ok {
		fields = make(map[string]Entry)
		l.rows[k.Row] = fields
	}
	if _, dup := fields[k.Field]; dup {
		return false
	}
	fields[k.Field] = e
	return true
}

// Len returns the number of recorded outcomes.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rows.Len()
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rows.clone()
}

// Flush writes a snapshot to the backend.
func (l *Ledger) Flush(ctx context.Context) error {
	if l.backend == nil {
		return nil
	}
	return l.backend.Save(ctx, l.Snapshot())
}

// Remove deletes the durable backing, signalling a fully completed run.
func (l *Ledger) Remove(ctx context.Context) error {
	if l.backend == nil {
		return nil
	}
	return l.backend.Remove(ctx)
}
