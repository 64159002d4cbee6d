package domain

// Result is the outcome of a façade operation. Token fields are set only on
// the operations that issue them; Detail carries diagnostic text outside production.
type Result struct {
	Code          Code
	IdentityToken string
	SessionToken  string
	Role          int
	Detail        string
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Code == CodeSuccess
}
