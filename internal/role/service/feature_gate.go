package service

import (
	"context"
	"fmt"
	"strings"

	authdomain "transapp-auth/internal/auth/domain"
	"transapp-auth/internal/policy/engine"
	"transapp-auth/internal/store"
)

// FeatureGate decides whether an identity may use a named feature.
type FeatureGate struct {
	resolver  *Resolver
	evaluator engine.Evaluator
}

// NewFeatureGate returns a FeatureGate that evaluates decisions with evaluator.
func NewFeatureGate(resolver *Resolver, evaluator engine.Evaluator) *FeatureGate {
	return &FeatureGate{resolver: resolver, evaluator: evaluator}
}

// Allowed reports whether the identity may use permission.
func (g *FeatureGate) Allowed(ctx context.Context, tx store.Tx, identityID, permission string) (bool, error) {
	permission = strings.TrimSpace(permission)
	if permission == "" {
		return false, fmt.Errorf("role: %w: permission is required", authdomain.ErrMalformedInput)
	}
	perms, err := g.resolver.Permissions(ctx, tx, identityID)
	if err != nil {
		return false, err
	}
	role, err := g.resolver.ResolveRole(ctx, tx, identityID)
	if err != nil {
		return false, err
	}
	ok, err := g.evaluator.EvaluateFeature(ctx, engine.FeatureInput{Permission: permission, Permissions: perms, Role: role})
	if err != nil {
		return false, fmt.Errorf("role: evaluate feature: %w", err)
	}
	return ok, nil
}
