package engine

import (
	"context"
	"testing"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_EvaluateFeature_DefaultPolicy(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	tests := []struct {
		name  string
		input FeatureInput
		want  bool
	}{
		{"held permission", FeatureInput{Permission: "board_write", Permissions: []string{"board_read", "board_write"}}, true},
		{"missing permission", FeatureInput{Permission: "board_write", Permissions: []string{"board_read"}}, false},
		{"no permissions", FeatureInput{Permission: "board_write"}, false},
		{"system configuration grants all", FeatureInput{Permission: "anything", Permissions: []string{"system_configuration"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EvaluateFeature(ctx, tt.input)
			if err != nil {
				t.Fatalf("EvaluateFeature: %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateFeature = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOPAEvaluator_CustomPolicy(t *testing.T) {
	ctx := context.Background()
	policy := `package transapp.feature

default allow = false

allow if {
	input.role >= 3
}
`
	e, err := NewOPAEvaluator(ctx, policy)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if ok, _ := e.EvaluateFeature(ctx, FeatureInput{Permission: "x", Role: 3}); !ok {
		t.Error("role 3 denied, want allowed")
	}
	if ok, _ := e.EvaluateFeature(ctx, FeatureInput{Permission: "x", Role: 1}); ok {
		t.Error("role 1 allowed, want denied")
	}
}

func TestOPAEvaluator_InvalidPolicy(t *testing.T) {
	if _, err := NewOPAEvaluator(context.Background(), "package broken\n\nallow if {"); err == nil {
		t.Error("expected compile error")
	}
}
