package vdb

import (
	"errors"
	"fmt"
)

// Querier defines the interface for installed-package queries.
// This interface allows for mocking the package database in tests.
type Querier interface {
	// Installed returns a snapshot of every installed package version
	Installed() ([]Installed, error)
}

// ErrDatabase marks a failed or inconsistent package database read.
var ErrDatabase = errors.New("package database unavailable or returned malformed data")

// QueryError reports where a package database read went wrong. It is fatal
// for an audit run: without ground truth there is no partial result.
type QueryError struct {
	Path string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("querying %s: %v", e.Path, e.Err)
}

func (e *QueryError) Unwrap() []error {
	return []error{ErrDatabase, e.Err}
}
