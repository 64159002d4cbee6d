package domain

import (
	"errors"
	"strconv"
	"strings"
)

// Registry keys read by the auth core.
const (
	SectionUser    = "user"
	KeyDeviceLimit = "device_limit"
)

// ErrInvalidDeviceLimit is returned when a device limit is not a non-negative integer.
var ErrInvalidDeviceLimit = errors.New("device limit must be a non-negative integer")

// Setting is one runtime-mutable registry value.
type Setting struct {
	Section string
	Key     string
	Value   string
}

// ParseDeviceLimit parses a stored device limit value.
func ParseDeviceLimit(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, ErrInvalidDeviceLimit
	}
	return n, nil
}
