package agent

import (
	"go.uber.org/zap"

	"arc/internal/knowledge"
	"arc/internal/provider"
	"arc/internal/schema"
)

// Static role instructions. Fixed per role; never mutated at runtime.
const (
	extractorInstructions = "Identify core methods, datasets, and principal findings." +
		" Provide concise bullet points; avoid speculation." +
		" When available, reference the extracted knowledge base and retrieved documents."

	challengerInstructions = "Challenge claims by identifying contradictions and unsupported points." +
		" List missing evidence and questions for clarification."

	integratorInstructions = "Integrate findings and critiques into coherent hypotheses." +
		" Provide rationale and map citations to each hypothesis."

	validatorInstructions = "Re-verify claims using available context; flag weak points." +
		" Estimate consensus confidence; propose next step if needed."

	plannerInstructions = "Identify knowledge gaps, propose follow-up research questions, suggest methodologies," +
		" and highlight connections among findings. Be specific and actionable."
)

func instructionsFor(role schema.Role) string {
	switch role {
	case schema.RoleExtractor:
		return extractorInstructions
	case schema.RoleChallenger:
		return challengerInstructions
	case schema.RoleIntegrator:
		return integratorInstructions
	case schema.RoleValidator:
		return validatorInstructions
	case schema.RolePlanner:
		return plannerInstructions
	}
	return ""
}

// Set is one run's worth of agents. Each run gets its own Set built
// from shared immutable inputs, so per-run retrieval overrides never
// leak into a concurrently executing run.
type Set struct {
	Extractor  Invoker
	Challenger Invoker
	Integrator Invoker
	Validator  Invoker
	Planner    Invoker
}

// SetOptions configures a Set beyond the provider client.
type SetOptions struct {
	PermissiveFallback bool
	Retriever          Retriever // nil disables retrieval augmentation
	RetrievalK         int
	Knowledge          []knowledge.ExtractedKnowledge
	Logger             *zap.Logger
}

// NewSet builds the five role agents. The extractor is wrapped with the
// context augmenter; the other roles invoke the provider directly.
func NewSet(client provider.Client, opts SetOptions) *Set {
	build := func(role schema.Role) *Agent {
		return New(Config{Role: role, Instructions: instructionsFor(role)},
			client, opts.PermissiveFallback, opts.Logger)
	}
	return &Set{
		Extractor: NewAugmenter(build(schema.RoleExtractor),
			opts.Retriever, opts.RetrievalK, opts.Knowledge),
		Challenger: build(schema.RoleChallenger),
		Integrator: build(schema.RoleIntegrator),
		Validator:  build(schema.RoleValidator),
		Planner:    build(schema.RolePlanner),
	}
}
