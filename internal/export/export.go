// Package export builds the per-submission download files.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/pairwise/internal/model"
)

// ContentType of every export file
const ContentType = "application/json"

// New wraps an evaluation record in the download envelope
func New(evaluatorID string, evaluation any, at time.Time) model.Export {
	return model.Export{
		EvaluatorID:     evaluatorID,
		Evaluation:      evaluation,
		ExportTimestamp: at.UTC(),
	}
}

// HybridFilename names a hybrid export: eval_<evaluator>_<evaluator sample id>_<unix ms>.json
func HybridFilename(evaluatorID, evaluatorSampleID string, at time.Time) string {
	return fmt.Sprintf("eval_%s_%s_%d.json", evaluatorID, evaluatorSampleID, at.UnixMilli())
}

// RandomFilename names a random-pairing export: evaluation_<evaluator>_<evaluation id>.json
func RandomFilename(evaluatorID, evaluationID string) string {
	return fmt.Sprintf("evaluation_%s_%s.json", evaluatorID, evaluationID)
}

// Marshal renders the envelope as two-space indented JSON
func Marshal(exp model.Export) ([]byte, error) {
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// WriteFile writes the envelope to dir/name and returns the written path
func WriteFile(dir, name string, exp model.Export) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("invalid export file name: %q", name)
	}
	data, err := Marshal(exp)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
