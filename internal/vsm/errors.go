package vsm

import "errors"

var (
	// ErrCorpusEmpty signals a model with no items to rank.
	ErrCorpusEmpty = errors.New("corpus is empty")
	// ErrLoadFailure signals a malformed, truncated, or unreachable model artifact.
	ErrLoadFailure = errors.New("model load failed")
)
