// Package dataset builds papers.json from a directory tree of paper reviews.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/pairwise/internal/assign"
	"github.com/ppiankov/pairwise/internal/model"
	"github.com/ppiankov/pairwise/internal/worker"
)

// Per-paper layout under the source root
const (
	humanReviewsDir  = "human_reviews/normalized_reviews"
	oursSummaryFile  = "ours/summary.txt"
	openReviewerFile = "openreviewer/normalized_review.txt"
	deepReviewerFile = "deepreviewer/normalized_review.txt"
)

// Extractor reads every paper directory under a root
type Extractor struct {
	root    string
	workers int
	logger  *slog.Logger
}

// NewExtractor creates an extractor for root using up to workers goroutines
func NewExtractor(root string, workers int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{root: root, workers: workers, logger: logger}
}

type paperResult struct {
	id    string
	paper model.Paper
}

// Extract reads all papers and keeps those usable for pairwise comparison:
// at least one human review and at least three reviews in total.
func (e *Extractor) Extract(ctx context.Context) (model.PaperSet, error) {
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	var tasks []worker.Task[paperResult]
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		tasks = append(tasks, func(ctx context.Context) paperResult {
			return paperResult{id: id, paper: e.readPaper(filepath.Join(e.root, id))}
		})
	}

	pool := worker.NewPool[paperResult](ctx, e.workers)
	pool.Start()
	defer pool.Shutdown()
	results := pool.Run(tasks)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	papers := make(model.PaperSet)
	for _, r := range results {
		if assign.Eligible(r.paper) {
			papers[r.id] = r.paper
		}
	}
	e.logger.Info("extracted papers", "scanned", len(tasks), "kept", len(papers))
	return papers, nil
}

func (e *Extractor) readPaper(dir string) model.Paper {
	paper := make(model.Paper)

	files, err := filepath.Glob(filepath.Join(dir, filepath.FromSlash(humanReviewsDir), "*.txt"))
	if err != nil {
		e.logger.Warn("list human reviews", "dir", dir, "error", err)
	}
	sort.Strings(files)
	for _, f := range files {
		stem := strings.TrimSuffix(filepath.Base(f), ".txt")
		if content, ok := e.readReview(f); ok {
			paper[model.SourceHuman] = append(paper[model.SourceHuman], model.Review{
				ID:      "human_" + stem,
				Type:    model.SourceHuman,
				Label:   fmt.Sprintf("Human Review (%s)", stem),
				Content: content,
			})
		}
	}

	singles := []struct {
		file   string
		source model.SourceType
		id     string
		label  string
	}{
		{oursSummaryFile, model.SourceOurs, "ours_summary", "Our System"},
		{openReviewerFile, model.SourceOpenReviewer, "openreviewer", "OpenReviewer"},
		{deepReviewerFile, model.SourceDeepReviewer, "deepreviewer", "DeepReviewer"},
	}
	for _, s := range singles {
		if content, ok := e.readReview(filepath.Join(dir, filepath.FromSlash(s.file))); ok {
			paper[s.source] = []model.Review{{ID: s.id, Type: s.source, Label: s.label, Content: content}}
		}
	}

	return paper
}

// readReview returns the trimmed visible text of a review file.
// Missing, unreadable and empty files are skipped.
func (e *Extractor) readReview(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false
	}
	if err != nil {
		e.logger.Warn("skipping unreadable review", "file", path, "error", err)
		return "", false
	}

	content := strings.TrimSpace(StripMarkup(string(data)))
	return content, content != ""
}

// Stats summarizes an extracted paper set
func Stats(papers model.PaperSet, at time.Time) model.DatasetStats {
	stats := model.DatasetStats{TotalPapers: len(papers), CreatedAt: at.UTC()}
	for _, p := range papers {
		if p.Has(model.SourceHuman) {
			stats.PapersWithHumanReviews++
		}
		if p.Has(model.SourceOurs) {
			stats.PapersWithOurSystem++
		}
		if p.Has(model.SourceOpenReviewer) {
			stats.PapersWithOpenReviewer++
		}
		if p.Has(model.SourceDeepReviewer) {
			stats.PapersWithDeepReviewer++
		}
	}
	return stats
}

// Output file names
const (
	PapersFile = "papers.json"
	StatsFile  = "stats.json"
)

// Write stores papers.json and stats.json in outDir
func Write(outDir string, papers model.PaperSet, stats model.DatasetStats) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeJSON(filepath.Join(outDir, PapersFile), papers); err != nil {
		return err
	}
	return writeJSON(filepath.Join(outDir, StatsFile), stats)
}

// writeJSON writes two-space indented JSON with non-ASCII and markup characters kept verbatim
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
