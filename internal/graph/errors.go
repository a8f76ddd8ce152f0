package graph

import "errors"

var (
	// ErrTransport marks a network or non-success response from a store.
	ErrTransport = errors.New("graph transport failure")
	// ErrDecode marks a payload that could not be decoded.
	ErrDecode = errors.New("graph decode failure")
	// ErrInvalidQuery marks root words or depth that failed validation.
	ErrInvalidQuery = errors.New("invalid graph query")
	// ErrUnsupported marks a query mode a strategy cannot serve.
	ErrUnsupported = errors.New("unsupported graph query")
)
