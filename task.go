package bulkscan

import (
	"github.com/UniQw/bulkscan/internal/ledger"
	"github.com/UniQw/bulkscan/internal/source"
)

// TaskKey identifies a task within a run: the input row index and the
// URL-bearing field (column) name.
type TaskKey = ledger.Key

// Task is one unit of work: a key and the raw URL found at that cell.
// The URL may be empty or malformed; such tasks resolve without a request.
type Task = source.Item

// Outcome is the recorded result of a task.
//
// Value holds the extracted identifier and is empty unless Status is
// StatusSuccess. Detail carries the extraction method on success, or a
// diagnostic (HTTP status, error text) otherwise.
type Outcome = ledger.Entry

// Snapshot is a point-in-time copy of all recorded outcomes, keyed by row
// and then by field.
type Snapshot = ledger.Snapshot

// Universe describes the full set of (row, field) pairs for a run.
type Universe = source.Universe
