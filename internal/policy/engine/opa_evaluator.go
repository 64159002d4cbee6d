package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const featureQuery = "data.transapp.feature.allow"

// Default Rego policy: a feature is allowed when the identity holds its
// permission or the system_configuration permission.
const defaultRegoPolicy = `package transapp.feature

default allow = false

allow if {
	input.permission != ""
	input.permission in input.permissions
}

allow if {
	"system_configuration" in input.permissions
}
`

// OPAEvaluator evaluates feature-access policies using OPA Rego. The query is
// compiled once at construction.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the given Rego modules, or the default policy when none are given.
// Every module must define data.transapp.feature.allow.
func NewOPAEvaluator(ctx context.Context, policies ...string) (*OPAEvaluator, error) {
	if len(policies) == 0 {
		policies = []string{defaultRegoPolicy}
	}
	modules := make(map[string]string, len(policies))
	for i, p := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = p
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	q, err := rego.New(
		rego.Query(featureQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy query: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// HealthCheck evaluates the prepared query against a minimal input. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.EvaluateFeature(ctx, FeatureInput{Permission: "health", Permissions: []string{"health"}})
	return err
}

// EvaluateFeature evaluates the policy for input. An undefined result is a denial.
func (e *OPAEvaluator) EvaluateFeature(ctx context.Context, input FeatureInput) (bool, error) {
	perms := input.Permissions
	if perms == nil {
		perms = []string{}
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"permission":  input.Permission,
		"permissions": perms,
		"role":        input.Role,
	}))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}
