package calls

import "errors"

var (
	ErrDuplicateToken    = errors.New("calls: duplicate token")
	ErrNotFound          = errors.New("calls: not found")
	ErrClosed            = errors.New("calls: registry closed")
	ErrInvalidToken      = errors.New("calls: invalid token")
	ErrInvalidTransition = errors.New("calls: invalid phase transition")
)
