// Package orchestrator owns the run state machine. It drives the turn
// pipeline until the consensus threshold is met or the turn budget is
// exhausted, assembles the trace, and derives and persists the final
// insight report. It is the only component with loop and stop
// authority.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"arc/internal/agent"
	"arc/internal/knowledge"
	"arc/internal/pipeline"
	"arc/internal/provider"
	"arc/internal/retrieval"
	"arc/internal/schema"
	"arc/internal/store"
)

// Template is the immutable per-process configuration runs are built
// from. Every run constructs its own agent set from the template, so a
// run's retrieval overrides are invisible to concurrent runs.
type Template struct {
	Client             provider.Client
	PermissiveFallback bool

	// Default extractor augmentation; any field may be zero.
	Retriever  agent.Retriever
	Knowledge  []knowledge.ExtractedKnowledge
	RetrievalK int
	FilesDir   string // directory scanned when a run enables retrieval ad hoc

	DebateEnabled   bool
	MaxDebateRounds int
	StepDelay       time.Duration
}

// RunOptions parameterizes one run.
type RunOptions struct {
	Topic              string
	MaxTurns           int
	ConsensusThreshold float64

	// Per-run retrieval overrides; nil EnableRetrieval keeps the
	// template default.
	EnableRetrieval *bool
	FilesDir        string
	RetrievalK      int
}

// Orchestrator executes runs against a shared template and store.
type Orchestrator struct {
	tmpl   Template
	store  *store.Store
	logger *zap.Logger
}

// New creates an orchestrator.
func New(tmpl Template, st *store.Store, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tmpl.RetrievalK < 1 {
		tmpl.RetrievalK = 4
	}
	return &Orchestrator{tmpl: tmpl, store: st, logger: logger}
}

// Start executes a complete run and returns its id. The loop appends
// one turn per pipeline pass and checks the stop condition only after a
// full turn; exhausting MaxTurns without reaching the threshold is a
// normal completion, not an error. The trace is flushed after every
// turn with status running, so a crash mid-run leaves a trace that is
// distinguishable from a completed one.
func (o *Orchestrator) Start(ctx context.Context, opts RunOptions) (string, error) {
	if opts.MaxTurns < 1 {
		return "", fmt.Errorf("max_turns must be >= 1, got %d", opts.MaxTurns)
	}

	runID := uuid.NewString()
	trace := &schema.Trace{
		RunID:     runID,
		Topic:     opts.Topic,
		CreatedAt: time.Now().UTC(),
		Status:    schema.StatusRunning,
		Turns:     []schema.Turn{},
	}
	logger := o.logger.With(zap.String("run_id", runID))
	logger.Info("run started",
		zap.String("topic", opts.Topic),
		zap.Int("max_turns", opts.MaxTurns),
		zap.Float64("consensus_threshold", opts.ConsensusThreshold))

	agents, err := o.buildAgents(opts, logger)
	if err != nil {
		return "", err
	}
	pipe := pipeline.New(agents, pipeline.Options{
		DebateEnabled:   o.tmpl.DebateEnabled,
		MaxDebateRounds: o.tmpl.MaxDebateRounds,
		StepDelay:       o.tmpl.StepDelay,
		Logger:          logger,
	})

	for turnIndex := 0; turnIndex < opts.MaxTurns; turnIndex++ {
		messages, stopConfidence, err := pipe.Execute(ctx, opts.Topic)
		if err != nil {
			return "", fmt.Errorf("run %s failed at turn %d: %w", runID, turnIndex, err)
		}
		trace.Turns = append(trace.Turns, schema.Turn{Index: turnIndex, Messages: messages})
		if err := o.store.SaveTrace(trace); err != nil {
			return "", fmt.Errorf("run %s: %w", runID, err)
		}
		logger.Info("turn completed",
			zap.Int("turn", turnIndex),
			zap.Int("messages", len(messages)),
			zap.Float64("stop_confidence", stopConfidence))

		if stopConfidence >= opts.ConsensusThreshold {
			break
		}
	}

	// Status flips exactly once; the trace is immutable afterwards.
	trace.Status = schema.StatusComplete
	if err := o.store.SaveTrace(trace); err != nil {
		return "", fmt.Errorf("run %s: %w", runID, err)
	}
	report := BuildReport(trace)
	if err := o.store.SaveReport(report); err != nil {
		return "", fmt.Errorf("run %s: %w", runID, err)
	}
	logger.Info("run complete",
		zap.Int("turns", len(trace.Turns)),
		zap.Float64("confidence", report.Confidence))
	return runID, nil
}

// LoadTrace exposes the store to the serving layer.
func (o *Orchestrator) LoadTrace(runID string) (*schema.Trace, error) {
	return o.store.LoadTrace(runID)
}

// LoadReport exposes the store to the serving layer.
func (o *Orchestrator) LoadReport(runID string) (*schema.InsightReport, error) {
	return o.store.LoadReport(runID)
}

// buildAgents constructs the run-scoped agent set, applying any per-run
// retrieval override to this set only.
func (o *Orchestrator) buildAgents(opts RunOptions, logger *zap.Logger) (*agent.Set, error) {
	retriever := o.tmpl.Retriever
	k := o.tmpl.RetrievalK
	if opts.RetrievalK > 0 {
		k = opts.RetrievalK
	}

	if opts.EnableRetrieval != nil {
		if !*opts.EnableRetrieval {
			retriever = nil
		} else {
			dir := opts.FilesDir
			if dir == "" {
				dir = o.tmpl.FilesDir
			}
			chunks, err := retrieval.LoadAndChunkDocs(dir, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to build run retriever: %w", err)
			}
			if len(chunks) > 0 {
				retriever = retrieval.NewIndex(chunks)
			} else {
				logger.Warn("retrieval enabled but no documents found", zap.String("dir", dir))
				retriever = nil
			}
		}
	}

	return agent.NewSet(o.tmpl.Client, agent.SetOptions{
		PermissiveFallback: o.tmpl.PermissiveFallback,
		Retriever:          retriever,
		RetrievalK:         k,
		Knowledge:          o.tmpl.Knowledge,
		Logger:             logger,
	}), nil
}
