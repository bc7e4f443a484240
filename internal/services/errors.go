package services

import "errors"

// Service errors
var (
	// ErrNoSession is returned when an operation is called without a
	// session id.
	ErrNoSession = errors.New("missing session id")

	// ErrDatasetNotLoaded is returned when the service has no table.
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
)
