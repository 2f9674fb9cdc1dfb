package message

import "errors"

var (
	ErrInvalidPayload = errors.New("message: invalid payload")
	ErrUnknownKind    = errors.New("message: unknown kind")
	ErrUnknownPrefix  = errors.New("message: unknown protocol prefix")
	ErrUnknownValue   = errors.New("message: unknown enum value")

	ErrInvalidMagic       = errors.New("message: invalid magic")
	ErrUnsupportedVersion = errors.New("message: unsupported wire version")
	ErrTruncated          = errors.New("message: truncated data")
	ErrInvalidLength      = errors.New("message: invalid length")
	ErrFieldTypeMismatch  = errors.New("message: field type mismatch")
)
