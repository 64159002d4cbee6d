package audit

import "testing"

func TestForOperation(t *testing.T) {
	tests := []struct {
		op        string
		succeeded bool
		want      ActionResource
	}{
		{"join", true, ActionResource{Action: "join", Resource: "identity"}},
		{"login", false, ActionResource{Action: "login_failure", Resource: "session"}},
		{"remove_device", true, ActionResource{Action: "remove_device", Resource: "device"}},
		{"set_password_by_identity", true, ActionResource{Action: "set_password_by_identity", Resource: "credential"}},
		{"set_device_limit", true, ActionResource{Action: "set_device_limit", Resource: "registry"}},
		{"set_identity_active", false, ActionResource{Action: "set_identity_active_failure", Resource: "identity"}},
		{"frobnicate", true, ActionResource{Action: "frobnicate", Resource: "unknown"}},
		{"", false, ActionResource{Action: "unknown_failure", Resource: "unknown"}},
	}
	for _, tt := range tests {
		if got := ForOperation(tt.op, tt.succeeded); got != tt.want {
			t.Errorf("ForOperation(%q, %v) = %+v, want %+v", tt.op, tt.succeeded, got, tt.want)
		}
	}
}

func TestTracked(t *testing.T) {
	for _, op := range []string{"join", "logout", "cancel_identity"} {
		if !Tracked(op) {
			t.Errorf("Tracked(%q) = false, want true", op)
		}
	}
	for _, op := range []string{"get_profile", "overview", "is_unique_car_no", "list_devices", "audit_trail", ""} {
		if Tracked(op) {
			t.Errorf("Tracked(%q) = true, want false", op)
		}
	}
}
