// Package testutil provides shared fixtures for inkwell tests.
//
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors standing in for upstream failures.
var (
	// ErrMockQuota is a provider rejecting a request for quota reasons.
	ErrMockQuota = errors.New("quota exceeded for project")

	// ErrMockAuth is a provider rejecting the API key.
	ErrMockAuth = errors.New("invalid x-api-key")

	// ErrMockMalformed is a queue answering with an unusable payload.
	ErrMockMalformed = errors.New("malformed payload")

	// ErrMockNetwork is a transport failure.
	ErrMockNetwork = errors.New("network error")
)
