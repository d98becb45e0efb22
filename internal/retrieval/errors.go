package retrieval

import (
	"errors"
	"fmt"
)

// ErrRetrieval marks a failure of the archive search path. It is distinct from
// an empty result: callers decide anchor presence on it.
var ErrRetrieval = errors.New("archive retrieval failed")

// RetrievalError records which step of the archive search failed
type RetrievalError struct {
	Op  string // embed, search
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("archive retrieval: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrRetrieval and the underlying cause to errors.Is
func (e *RetrievalError) Unwrap() []error {
	return []error{ErrRetrieval, e.Err}
}
