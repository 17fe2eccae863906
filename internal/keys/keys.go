package keys

// Package keys centralizes Redis key construction for the progress backend.
// It is kept in internal to avoid leaking key formats to public API.

func Progress(run string) string { return "bulkscan:{" + run + "}:progress" }
func Meta(run string) string     { return "bulkscan:{" + run + "}:meta" }

// Run holds all precomputed keys for a run name to avoid repeated concatenations.
type Run struct {
	Progress string
	Meta     string
}

// For returns a set of precomputed keys for the provided run.
func For(run string) Run {
	prefix := "bulkscan:{" + run + "}:"
	return Run{
		Progress: prefix + "progress",
		Meta:     prefix + "meta",
	}
}

// ExtractRun parses a run name from a raw Redis key (e.g. "bulkscan:{meters}:progress").
// It returns an empty string if the format is invalid.
func ExtractRun(key string) string {
	start := -1
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '{':
			if start == -1 {
				start = i
			}
		case '}':
			if start == -1 || i <= start+1 {
				return ""
			}
			return key[start+1 : i]
		}
	}
	return ""
}
