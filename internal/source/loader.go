// Package source loads survey configuration, sample lists and papers from a
// static location: a local directory or any static HTTP host.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/pairwise/internal/auth"
	"github.com/ppiankov/pairwise/internal/model"
	"github.com/ppiankov/pairwise/internal/worker"
)

// File names under the data base
const (
	AuthConfigFile       = "auth_config.json"
	AssignmentConfigFile = "static_evaluation_config.json"
	PapersFile           = "papers.json"
)

// Loader reads JSON files relative to a base directory or URL
type Loader struct {
	base    string
	remote  bool
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewLoader creates a loader for cfg.Base
func NewLoader(cfg model.DataConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	remote := strings.HasPrefix(cfg.Base, "http://") || strings.HasPrefix(cfg.Base, "https://")

	l := &Loader{base: cfg.Base, remote: remote, logger: logger}
	if remote {
		limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
		l.fetcher = NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBodyBytes, limiter, cfg.HTTPProxy, cfg.HTTPSProxy)
	}
	return l
}

// Base returns the configured base
func (l *Loader) Base() string {
	return l.base
}

// Remote reports whether the base is an HTTP(S) URL
func (l *Loader) Remote() bool {
	return l.remote
}

// Read returns the raw contents of name relative to the base
func (l *Loader) Read(ctx context.Context, name string) ([]byte, error) {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return nil, fmt.Errorf("invalid data file name: %q", name)
	}

	if l.remote {
		u, err := url.JoinPath(l.base, name)
		if err != nil {
			return nil, fmt.Errorf("build URL for %s: %w", name, err)
		}
		return l.fetcher.FetchWithRetry(ctx, u)
	}

	data, err := os.ReadFile(filepath.Join(l.base, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func (l *Loader) readJSON(ctx context.Context, name string, v any) error {
	data, err := l.Read(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// LoadAuthConfig returns the accepted access codes.
// It never fails: any load or parse problem yields auth.FallbackCodes.
func (l *Loader) LoadAuthConfig(ctx context.Context) []string {
	var cfg model.AuthConfig
	if err := l.readJSON(ctx, AuthConfigFile, &cfg); err != nil {
		l.logger.Warn("using fallback access codes", "error", err)
		return append([]string(nil), auth.FallbackCodes...)
	}
	if len(cfg.AccessCodes) == 0 {
		l.logger.Warn("auth config has no access codes, using fallback codes")
		return append([]string(nil), auth.FallbackCodes...)
	}
	l.logger.Info("loaded authentication configuration", "codes", len(cfg.AccessCodes))
	return cfg.AccessCodes
}

// LoadAssignmentConfig returns the evaluator file map, or nil when it cannot
// be loaded (single-evaluator fallback mode).
func (l *Loader) LoadAssignmentConfig(ctx context.Context) *model.AssignmentConfig {
	var cfg model.AssignmentConfig
	if err := l.readJSON(ctx, AssignmentConfigFile, &cfg); err != nil {
		l.logger.Warn("continuing without assignment configuration", "error", err)
		return nil
	}
	l.logger.Info("loaded assignment configuration", "evaluators", len(cfg.EvaluatorFiles))
	return &cfg
}

// SampleFile returns the sample file name of an evaluator
func SampleFile(assignment *model.AssignmentConfig, evaluatorID string) string {
	if assignment != nil {
		if name, ok := assignment.EvaluatorFiles[evaluatorID]; ok && name != "" {
			return name
		}
	}
	return fmt.Sprintf("evaluator_%s_samples.json", evaluatorID)
}

// LoadEvaluatorSamples loads the ordered sample list of one evaluator
func (l *Loader) LoadEvaluatorSamples(ctx context.Context, assignment *model.AssignmentConfig, evaluatorID string) ([]model.Sample, error) {
	var samples []model.Sample
	if err := l.readJSON(ctx, SampleFile(assignment, evaluatorID), &samples); err != nil {
		return nil, fmt.Errorf("failed to load samples for evaluator %s: %w", evaluatorID, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples assigned to evaluator %s", evaluatorID)
	}
	l.logger.Info("loaded evaluator samples", "evaluator", evaluatorID, "samples", len(samples))
	return samples, nil
}

// LoadPapers loads papers.json
func (l *Loader) LoadPapers(ctx context.Context) (model.PaperSet, error) {
	var papers model.PaperSet
	if err := l.readJSON(ctx, PapersFile, &papers); err != nil {
		return nil, fmt.Errorf("load papers: %w", err)
	}
	l.logger.Info("loaded papers", "papers", len(papers))
	return papers, nil
}
