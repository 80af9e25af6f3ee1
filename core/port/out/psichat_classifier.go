// Package out defines outbound ports (driven ports) for the application.
package out

import "context"

// LabelProbability is one entry of a classifier's raw output.
type LabelProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// TextClassifier maps a text to a probability over a fixed label set.
//
// Classify returns one entry per label, in the model's own label order,
// with probabilities in [0, 1]. Implementations must be safe for concurrent use.
type TextClassifier interface {
	// Name identifies the model (used for cache keys and logging).
	Name() string
	Classify(ctx context.Context, text string) ([]LabelProbability, error)
}
