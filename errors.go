package bulkscan

import (
	"errors"

	"github.com/UniQw/bulkscan/internal/worker"
)

// ErrTransient marks a network-level failure (connection refused or reset,
// timeout). The retry loop retries such failures indefinitely. Classifiers
// must wrap it, e.g. fmt.Errorf("...: %w", ErrTransient).
var ErrTransient = worker.ErrTransient

// ErrUnknownStatus is returned when an invalid status label is parsed.
var ErrUnknownStatus = errors.New("bulkscan: unknown status")

// ErrEmptyEndpoint is returned by NewClient when no endpoint is given.
var ErrEmptyEndpoint = errors.New("bulkscan: empty endpoint")

// ErrNoURLFields is returned when the universe has no URL-bearing fields.
var ErrNoURLFields = errors.New("bulkscan: no URL fields")

// ErrNilClassifier is returned by Run when the runner has no classifier.
var ErrNilClassifier = errors.New("bulkscan: nil classifier")
