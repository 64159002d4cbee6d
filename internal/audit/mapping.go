package audit

// ActionResource holds action and resource derived from a façade operation.
type ActionResource struct {
	Action   string
	Resource string
}

// Resources touched by each façade operation.
var operationResources = map[string]string{
	"join":                     "identity",
	"login":                    "session",
	"login_by_identity_token":  "session",
	"logout":                   "session",
	"remove_device":            "device",
	"set_password":             "credential",
	"set_password_by_identity": "credential",
	"set_push_address":         "device",
	"update_profile":           "identity",
	"cancel_identity":          "identity",
	"set_device_limit":         "registry",
	"set_identity_active":      "identity",
}

// ForOperation returns the audit action and resource for op. Failed operations
// get a "_failure" suffix on the action; unknown operations map to resource "unknown".
func ForOperation(op string, succeeded bool) ActionResource {
	resource, ok := operationResources[op]
	if !ok {
		resource = "unknown"
	}
	if op == "" {
		op = "unknown"
	}
	action := op
	if !succeeded {
		action = op + "_failure"
	}
	return ActionResource{Action: action, Resource: resource}
}

// Tracked reports whether op is a state-changing operation that gets audited.
func Tracked(op string) bool {
	_, ok := operationResources[op]
	return ok
}
