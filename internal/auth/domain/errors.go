package domain

import "errors"

// Sentinel errors returned by the auth services. Callers compare with errors.Is.
var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrMalformedCredential = errors.New("malformed credential")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrCapacityExceeded    = errors.New("device capacity exceeded")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrForbidden           = errors.New("forbidden")
	ErrCarNoTaken          = errors.New("car number already taken")
)
