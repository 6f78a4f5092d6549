package usecase

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrDiscoveryFailed = errors.New("source schema discovery failed")
	ErrNoFinishers     = errors.New("no finishers found")

	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
