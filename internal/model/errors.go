package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation rejected input, nothing was written
	ErrValidation = errors.New("invalid request")
	// ErrNotFound unknown guess or result
	ErrNotFound = errors.New("not found")
	// ErrNotReady the store connection is not available
	ErrNotReady = errors.New("store is not ready")
	// ErrGuessClosed the guess's draw time has passed
	ErrGuessClosed = fmt.Errorf("%w: draw for this guess has already closed", ErrValidation)
)
