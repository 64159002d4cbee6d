package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{nil, CodeSuccess},
		{ErrMalformedInput, CodeMalformedRequest},
		{fmt.Errorf("register: %w", ErrMalformedInput), CodeMalformedRequest},
		{ErrMalformedCredential, CodeInvalidCredentialFormat},
		{ErrInvalidCredential, CodeUnauthorized},
		{ErrUnauthorized, CodeUnauthorized},
		{fmt.Errorf("login: %w", ErrCapacityExceeded), CodeDeviceCapacityExceeded},
		{ErrDeviceNotFound, CodeDeviceNotFound},
		{ErrForbidden, CodeForbidden},
		{fmt.Errorf("car no: %w", ErrCarNoTaken), CodeCarNoTaken},
		{errors.New("connection reset"), CodeServerError},
	}
	for _, tt := range tests {
		if got := CodeFor(tt.err); got != tt.want {
			t.Errorf("CodeFor(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestCode_HTTPStatusIsOneToOne(t *testing.T) {
	want := map[Code]int{
		CodeSuccess:                 http.StatusOK,
		CodeMalformedRequest:        http.StatusBadRequest,
		CodeInvalidCredentialFormat: http.StatusNotAcceptable,
		CodeUnauthorized:            http.StatusUnauthorized,
		CodeDeviceCapacityExceeded:  http.StatusConflict,
		CodeDeviceNotFound:          http.StatusNotFound,
		CodeServerError:             http.StatusInternalServerError,
		CodeForbidden:               http.StatusForbidden,
		CodeCarNoTaken:              463,
	}
	seen := make(map[int]Code)
	for code, status := range want {
		if got := code.HTTPStatus(); got != status {
			t.Errorf("%v.HTTPStatus() = %d, want %d", code, got, status)
		}
		if prev, dup := seen[status]; dup {
			t.Errorf("status %d shared by %v and %v", status, prev, code)
		}
		seen[status] = code
	}
}

func TestCode_StableValues(t *testing.T) {
	if CodeSuccess != 0 || CodeMalformedRequest != 1 || CodeInvalidCredentialFormat != 2 ||
		CodeUnauthorized != 3 || CodeDeviceCapacityExceeded != 4 || CodeDeviceNotFound != 5 ||
		CodeServerError != 6 || CodeForbidden != 7 || CodeCarNoTaken != 8 {
		t.Error("outcome code values changed")
	}
	if Code(42).String() != "unknown" || CodeServerError.String() != "server_error" {
		t.Error("unexpected Code.String")
	}
}
