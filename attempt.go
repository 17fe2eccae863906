package bulkscan

import (
	"context"

	"github.com/UniQw/bulkscan/internal/hctx"
)

// Attempt describes the classification attempt in progress.
type Attempt struct {
	Key TaskKey
	// Number starts at 1 and increases with every transient retry.
	Number int
}

// AttemptFrom returns the attempt carried by a context passed to a
// ClassifyFunc by the runner. It reports false for any other context.
func AttemptFrom(ctx context.Context) (Attempt, bool) {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return Attempt{}, false
	}
	return Attempt{Key: TaskKey{Row: st.Row, Field: st.Field}, Number: st.Attempt}, true
}
