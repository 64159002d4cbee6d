package engine

import "context"

// FeatureInput is the evaluation input for a feature-access decision.
type FeatureInput struct {
	Permission  string
	Permissions []string
	Role        int
}

// Evaluator decides feature access using OPA or other engines.
type Evaluator interface {
	// EvaluateFeature reports whether an identity holding input.Permissions may use input.Permission.
	EvaluateFeature(ctx context.Context, input FeatureInput) (bool, error)
}
