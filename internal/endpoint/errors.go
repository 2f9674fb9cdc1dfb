package endpoint

import "errors"

var (
	ErrInit            = errors.New("endpoint: initialisation failed")
	ErrAlreadyReleased = errors.New("endpoint: message already released")
	ErrBorrowed        = errors.New("endpoint: borrowed message cannot be released")
	ErrNilMessage      = errors.New("endpoint: nil message")
)
