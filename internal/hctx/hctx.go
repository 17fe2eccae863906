package hctx

import "context"

// State holds per-task execution metadata that the retry loop publishes
// to the classify call and its middleware.
type State struct {
	Row     int
	Field   string
	Attempt int
}

// New creates a fresh state container for a task.
func New(row int, field string) *State { return &State{Row: row, Field: field} }

type ctxKey struct{}

// WithState returns a child context carrying the given state.
func WithState(parent context.Context, s *State) context.Context {
	return context.WithValue(parent, ctxKey{}, s)
}

// From extracts the state from context if present.
func From(ctx context.Context) (*State, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return nil, false
	}
	st, ok := v.(*State)
	return st, ok
}
