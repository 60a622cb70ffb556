// Package schema defines the value objects shared across the research
// pipeline: agent messages, turns, run traces, and the derived insight
// report. Everything here is a plain JSON-serializable value; mutation
// rules (who appends turns, when status flips) live in the orchestrator.
package schema

import (
	"fmt"
	"time"
)

// Role identifies one of the five fixed pipeline stages.
type Role string

const (
	RoleExtractor  Role = "extractor"
	RoleChallenger Role = "challenger"
	RoleIntegrator Role = "integrator"
	RoleValidator  Role = "validator"
	RolePlanner    Role = "planner"
)

// PipelineRoles is the fixed, total order of the main pipeline.
var PipelineRoles = []Role{
	RoleExtractor,
	RoleChallenger,
	RoleIntegrator,
	RoleValidator,
	RolePlanner,
}

// Trace lifecycle states. A trace is created running and flips to
// complete exactly once, after which it is immutable.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
)

// Message is a single agent utterance. Immutable once produced by an
// agent invocation; the orchestration layer may prepend a display tag
// (debate headers) but agents never edit their own output.
// Confidence is the producing role's self-assessment, not a calibrated
// probability.
type Message struct {
	Role       Role     `json:"role"`
	Content    string   `json:"content"`
	Citations  []string `json:"citations"`
	Confidence float64  `json:"confidence"`
}

// Turn is one full pipeline pass. Messages interleave main-pipeline
// output with embedded debate exchanges in exact temporal order.
type Turn struct {
	Index    int       `json:"index"`
	Messages []Message `json:"messages"`
}

// Trace is the full persisted record of a run.
type Trace struct {
	RunID     string    `json:"run_id"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
	Turns     []Turn    `json:"turns"`
}

// InsightReport is derived from the final turn of a completed trace.
type InsightReport struct {
	RunID      string   `json:"run_id"`
	Topic      string   `json:"topic"`
	Summary    string   `json:"summary"`
	Hypotheses []string `json:"hypotheses"`
	Confidence float64  `json:"confidence"`
	Citations  []string `json:"citations"`
}

// RunRequest is the body for POST /run.
type RunRequest struct {
	Topic              string  `json:"topic"`
	MaxTurns           int     `json:"max_turns"`
	ConsensusThreshold float64 `json:"consensus_threshold"`

	// Optional per-run retrieval overrides. A nil EnableRetrieval keeps
	// the server-wide default.
	EnableRetrieval *bool  `json:"enable_retrieval,omitempty"`
	FilesDir        string `json:"files_dir,omitempty"`
	RetrievalK      int    `json:"retrieval_k,omitempty"`
}

// Validate applies defaults and rejects out-of-range fields.
func (r *RunRequest) Validate() error {
	if len(r.Topic) < 3 {
		return fmt.Errorf("topic must be at least 3 characters")
	}
	if r.MaxTurns == 0 {
		r.MaxTurns = 2
	}
	if r.MaxTurns < 1 || r.MaxTurns > 10 {
		return fmt.Errorf("max_turns must be in [1,10], got %d", r.MaxTurns)
	}
	if r.ConsensusThreshold < 0 || r.ConsensusThreshold > 1 {
		return fmt.Errorf("consensus_threshold must be in [0,1], got %v", r.ConsensusThreshold)
	}
	if r.RetrievalK == 0 {
		r.RetrievalK = 4
	}
	if r.RetrievalK < 1 || r.RetrievalK > 20 {
		return fmt.Errorf("retrieval_k must be in [1,20], got %d", r.RetrievalK)
	}
	return nil
}

// RunResponse is the body returned by POST /run.
type RunResponse struct {
	RunID string `json:"run_id"`
}
