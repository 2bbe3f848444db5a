// Package classify routes complaint text to a handling department, or flags
// it as out of scope.
package classify

import "context"

// Result is the outcome of one classification. Exactly one of the two states
// holds: a department from the fixed enumeration, or out-of-scope.
type Result struct {
	Department string `json:"department,omitempty"`
	OutOfScope bool   `json:"outOfScope"`
}

// TextClassifier decides which department should handle a complaint. A
// returned error means the classifier itself could not run (upstream
// failure); an out-of-scope verdict is a successful classification.
type TextClassifier interface {
	Classify(ctx context.Context, complaint string) (Result, error)
}
