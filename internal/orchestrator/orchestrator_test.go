package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"arc/internal/provider"
	"arc/internal/schema"
	"arc/internal/store"
)

func newTestOrchestrator(t *testing.T, tmpl Template) *Orchestrator {
	t.Helper()
	if tmpl.Client == nil {
		tmpl.Client = provider.NewOfflineClient()
	}
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	return New(tmpl, st, nil)
}

func TestStartRejectsZeroTurns(t *testing.T) {
	o := newTestOrchestrator(t, Template{})
	_, err := o.Start(context.Background(), RunOptions{Topic: "t", MaxTurns: 0})
	require.Error(t, err)
}

func TestStartStopsAfterFirstTurnWhenThresholdTrivial(t *testing.T) {
	o := newTestOrchestrator(t, Template{})
	runID, err := o.Start(context.Background(), RunOptions{
		Topic:              "graphene conductivity",
		MaxTurns:           5,
		ConsensusThreshold: 0.0,
	})
	require.NoError(t, err)

	trace, err := o.LoadTrace(runID)
	require.NoError(t, err)
	require.Len(t, trace.Turns, 1, "threshold 0 is satisfied by any confidence after one full turn")
	require.Equal(t, schema.StatusComplete, trace.Status)
	require.Len(t, trace.Turns[0].Messages, 5)
}

func TestStartExhaustsTurnsWhenThresholdUnreachable(t *testing.T) {
	o := newTestOrchestrator(t, Template{})
	// Offline confidence never exceeds 0.95, so 0.99 cannot be met and
	// exhausting the budget is a normal completion.
	runID, err := o.Start(context.Background(), RunOptions{
		Topic:              "graphene conductivity",
		MaxTurns:           3,
		ConsensusThreshold: 0.99,
	})
	require.NoError(t, err)

	trace, err := o.LoadTrace(runID)
	require.NoError(t, err)
	require.Len(t, trace.Turns, 3)
	require.Equal(t, schema.StatusComplete, trace.Status)
	for i, turn := range trace.Turns {
		require.Equal(t, i, turn.Index)
	}
}

func TestStartDeterministicOffline(t *testing.T) {
	o := newTestOrchestrator(t, Template{})
	opts := RunOptions{Topic: "superconductors", MaxTurns: 2, ConsensusThreshold: 0.99}

	id1, err := o.Start(context.Background(), opts)
	require.NoError(t, err)
	id2, err := o.Start(context.Background(), opts)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2, "each run gets a fresh id")

	t1, err := o.LoadTrace(id1)
	require.NoError(t, err)
	t2, err := o.LoadTrace(id2)
	require.NoError(t, err)
	if diff := cmp.Diff(t1.Turns, t2.Turns); diff != "" {
		t.Fatalf("offline runs diverged (-first +second):\n%s", diff)
	}
}

func TestStartPersistsTraceAndReport(t *testing.T) {
	o := newTestOrchestrator(t, Template{})
	runID, err := o.Start(context.Background(), RunOptions{
		Topic:              "room-temperature superconductivity",
		MaxTurns:           1,
		ConsensusThreshold: 0.5,
	})
	require.NoError(t, err)

	trace, err := o.LoadTrace(runID)
	require.NoError(t, err)
	require.Equal(t, runID, trace.RunID)
	require.Equal(t, "room-temperature superconductivity", trace.Topic)
	require.False(t, trace.CreatedAt.IsZero())

	report, err := o.LoadReport(runID)
	require.NoError(t, err)
	require.Equal(t, runID, report.RunID)
	require.Equal(t, trace.Topic, report.Topic)
	require.NotEmpty(t, report.Summary)
	require.Greater(t, report.Confidence, 0.0)

	// The persisted report equals one rebuilt from the persisted trace.
	if diff := cmp.Diff(BuildReport(trace), report); diff != "" {
		t.Fatalf("persisted report diverges from trace-derived report:\n%s", diff)
	}
}

func TestStartDebateMessagesRecorded(t *testing.T) {
	o := newTestOrchestrator(t, Template{DebateEnabled: true, MaxDebateRounds: 1})
	runID, err := o.Start(context.Background(), RunOptions{
		Topic:              "debated topic",
		MaxTurns:           1,
		ConsensusThreshold: 0.0,
	})
	require.NoError(t, err)

	trace, err := o.LoadTrace(runID)
	require.NoError(t, err)
	require.Len(t, trace.Turns[0].Messages, 17, "five main messages plus four three-message debates")
}

func TestLoadUnknownRun(t *testing.T) {
	o := newTestOrchestrator(t, Template{})
	_, err := o.LoadTrace("no-such-run")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = o.LoadReport("no-such-run")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPerRunRetrievalOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"),
		[]byte("bespoke retrieval corpus for this run"), 0o644))

	o := newTestOrchestrator(t, Template{})

	enable := true
	agents, err := o.buildAgents(RunOptions{
		Topic:           "t",
		MaxTurns:        1,
		EnableRetrieval: &enable,
		FilesDir:        dir,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, agents.Extractor)

	// The template itself is untouched by the per-run override.
	require.Nil(t, o.tmpl.Retriever)
}

func TestPerRunRetrievalDisable(t *testing.T) {
	o := newTestOrchestrator(t, Template{})
	disable := false
	agents, err := o.buildAgents(RunOptions{EnableRetrieval: &disable}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, agents)
}

func TestPerRunRetrievalEmptyDirFallsBack(t *testing.T) {
	o := newTestOrchestrator(t, Template{})
	enable := true
	agents, err := o.buildAgents(RunOptions{
		EnableRetrieval: &enable,
		FilesDir:        t.TempDir(),
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, agents, "an empty corpus disables retrieval instead of failing the run")
}
