package domain

import (
	"errors"
	"net/http"
)

// Code is the stable outcome code returned to clients.
type Code int

const (
	CodeSuccess                 Code = 0
	CodeMalformedRequest        Code = 1
	CodeInvalidCredentialFormat Code = 2
	CodeUnauthorized            Code = 3
	CodeDeviceCapacityExceeded  Code = 4
	CodeDeviceNotFound          Code = 5
	CodeServerError             Code = 6
	CodeForbidden               Code = 7
	CodeCarNoTaken              Code = 8
)

// StatusCarNoTaken is the non-standard transport status for CodeCarNoTaken.
const StatusCarNoTaken = 463

var codeNames = map[Code]string{
	CodeSuccess:                 "success",
	CodeMalformedRequest:        "malformed_request",
	CodeInvalidCredentialFormat: "invalid_credential_format",
	CodeUnauthorized:            "unauthorized",
	CodeDeviceCapacityExceeded:  "device_capacity_exceeded",
	CodeDeviceNotFound:          "device_not_found",
	CodeServerError:             "server_error",
	CodeForbidden:               "forbidden",
	CodeCarNoTaken:              "car_no_taken",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "unknown"
}

// HTTPStatus returns the transport status a handler should use for c.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeSuccess:
		return http.StatusOK
	case CodeMalformedRequest:
		return http.StatusBadRequest
	case CodeInvalidCredentialFormat:
		return http.StatusNotAcceptable
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeDeviceCapacityExceeded:
		return http.StatusConflict
	case CodeDeviceNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeCarNoTaken:
		return StatusCarNoTaken
	default:
		return http.StatusInternalServerError
	}
}

// CodeFor maps an error returned by the auth services to its outcome code.
// Unrecognized errors are server errors.
func CodeFor(err error) Code {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, ErrMalformedInput):
		return CodeMalformedRequest
	case errors.Is(err, ErrMalformedCredential):
		return CodeInvalidCredentialFormat
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrCapacityExceeded):
		return CodeDeviceCapacityExceeded
	case errors.Is(err, ErrDeviceNotFound):
		return CodeDeviceNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrCarNoTaken):
		return CodeCarNoTaken
	default:
		return CodeServerError
	}
}
