package domain

import (
	"errors"
	"testing"
)

func TestParseDeviceLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{" 5 ", 5, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"three", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDeviceLimit(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDeviceLimit) {
				t.Errorf("ParseDeviceLimit(%q) err = %v, want ErrInvalidDeviceLimit", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseDeviceLimit(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}
