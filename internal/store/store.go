// Package store persists run artifacts. Each run owns one directory
// keyed by run id holding trace.json and report.json; writes are
// whole-file atomic replacements (temp file + rename) so a concurrent
// reader sees either the previous or the new artifact, never a torn
// one.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"arc/internal/schema"
)

// ErrNotFound reports an unknown run id. Callers must map it to a
// "no such run" response, distinct from corruption or IO failures.
var ErrNotFound = errors.New("run not found")

const (
	traceFile  = "trace.json"
	reportFile = "report.json"
)

// Store is a file-backed artifact store rooted at one data directory.
type Store struct {
	root string
}

// New creates a store rooted at dataDir, creating the runs directory
// eagerly so later writes only ever create per-run subdirectories.
func New(dataDir string) (*Store, error) {
	root := filepath.Join(dataDir, "runs")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runs dir: %w", err)
	}
	return &Store{root: root}, nil
}

// RunDir returns the directory owning a run's artifacts.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

// TracePath returns the on-disk location of a run's trace, whether or
// not it exists yet. Used by the live view to watch for updates.
func (s *Store) TracePath(runID string) string {
	return filepath.Join(s.RunDir(runID), traceFile)
}

// SaveTrace persists the trace with atomic-replace semantics.
func (s *Store) SaveTrace(trace *schema.Trace) error {
	return s.writeJSON(trace.RunID, traceFile, trace)
}

// SaveReport persists the insight report with atomic-replace semantics.
func (s *Store) SaveReport(report *schema.InsightReport) error {
	return s.writeJSON(report.RunID, reportFile, report)
}

// LoadTrace loads a persisted trace, or ErrNotFound for an unknown id.
func (s *Store) LoadTrace(runID string) (*schema.Trace, error) {
	var trace schema.Trace
	if err := s.readJSON(runID, traceFile, &trace); err != nil {
		return nil, err
	}
	return &trace, nil
}

// LoadReport loads a persisted report, or ErrNotFound for an unknown id.
func (s *Store) LoadReport(runID string) (*schema.InsightReport, error) {
	var report schema.InsightReport
	if err := s.readJSON(runID, reportFile, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// LatestRunID returns the most recently modified run directory, or
// ErrNotFound when no runs exist.
func (s *Store) LatestRunID() (string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", fmt.Errorf("failed to list runs: %w", err)
	}
	var (
		latest   string
		latestMt int64
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mt := info.ModTime().UnixNano(); latest == "" || mt > latestMt {
			latest, latestMt = e.Name(), mt
		}
	}
	if latest == "" {
		return "", ErrNotFound
	}
	return latest, nil
}

func (s *Store) writeJSON(runID, name string, v any) error {
	dir := s.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(runID, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.RunDir(runID), name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
