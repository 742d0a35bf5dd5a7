package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	ErrInvalidIdentity  = fmt.Errorf("%w: identity requires item and color", ErrInvalidInput)
	ErrNegativeQuantity = fmt.Errorf("%w: negative quantity", ErrInvalidInput)
	ErrUnknownPolicy    = fmt.Errorf("%w: unknown offer policy", ErrInvalidInput)
)
