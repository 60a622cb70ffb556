// Package agent binds the five pipeline roles to a generation client.
// Roles share one capability, Invoke, and differ only in configuration;
// the extractor's context augmentation is a decorator around the base
// agent rather than a separate type.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"arc/internal/provider"
	"arc/internal/schema"
)

// Invoker is the single capability every pipeline stage exposes.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (schema.Message, error)
	Role() schema.Role
}

// Config holds the static identity of one agent.
type Config struct {
	Role         schema.Role
	Instructions string
}

// Agent is a role-bound wrapper over a generation client. When
// PermissiveFallback is set a failed provider call is replaced by the
// deterministic offline synthesis instead of propagating, so the
// pipeline keeps moving without credentials or connectivity.
type Agent struct {
	cfg      Config
	client   provider.Client
	fallback bool
	logger   *zap.Logger
}

// New creates an agent for the given role configuration.
func New(cfg Config, client provider.Client, permissiveFallback bool, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{cfg: cfg, client: client, fallback: permissiveFallback, logger: logger}
}

// Role returns the agent's pipeline role.
func (a *Agent) Role() schema.Role { return a.cfg.Role }

// Invoke sends the prompt to the provider under the role's static
// instructions and wraps the result in a Message.
func (a *Agent) Invoke(ctx context.Context, prompt string) (schema.Message, error) {
	gen, err := a.client.Generate(ctx, a.cfg.Instructions, prompt)
	if err != nil {
		if !a.fallback {
			return schema.Message{}, fmt.Errorf("generation failed for role %s: %w", a.cfg.Role, err)
		}
		a.logger.Warn("provider call failed, using offline placeholder",
			zap.String("role", string(a.cfg.Role)), zap.Error(err))
		gen = provider.OfflineGeneration(a.cfg.Instructions, prompt)
	}
	citations := gen.Citations
	if citations == nil {
		citations = []string{}
	}
	return schema.Message{
		Role:       a.cfg.Role,
		Content:    gen.Content,
		Citations:  citations,
		Confidence: gen.Confidence,
	}, nil
}
