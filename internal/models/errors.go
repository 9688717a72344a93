package models

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery signals a recommendation query that violates a request constraint.
var ErrInvalidQuery = errors.New("invalid query")

// QueryError names the violated constraint of an invalid query.
type QueryError struct {
	Field  string
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidQuery.Error(), e.Field, e.Reason)
}

func (e *QueryError) Unwrap() error { return ErrInvalidQuery }
