package model

import "time"

// Review is one review of a paper from a single source
type Review struct {
	ID      string     `json:"id"`
	Type    SourceType `json:"type"`
	Label   string     `json:"label"`
	Content string     `json:"content"`
}

// SourceType identifies who wrote a review
type SourceType string

const (
	SourceHuman        SourceType = "human"        // Human-authored peer review (reference pool)
	SourceOurs         SourceType = "ours"         // Our system's summary
	SourceOpenReviewer SourceType = "openreviewer" // OpenReviewer baseline
	SourceDeepReviewer SourceType = "deepreviewer" // DeepReviewer baseline
)

// Paper holds every review of one paper keyed by source
type Paper map[SourceType][]Review

// Count returns the number of reviews across all sources
func (p Paper) Count() int {
	n := 0
	for _, reviews := range p {
		n += len(reviews)
	}
	return n
}

// Has reports whether the paper has at least one review from the source
func (p Paper) Has(source SourceType) bool {
	return len(p[source]) > 0
}

// PaperSet is the papers.json document: paper id -> source -> reviews
type PaperSet map[string]Paper

// ReviewRef identifies a review inside a persisted judgment without its text
type ReviewRef struct {
	ID    string     `json:"id"`
	Type  SourceType `json:"type"`
	Label string     `json:"label"`
}

// Ref returns the reference form of the review
func (r Review) Ref() ReviewRef {
	return ReviewRef{ID: r.ID, Type: r.Type, Label: r.Label}
}

// DatasetStats is the stats.json document written next to papers.json
type DatasetStats struct {
	TotalPapers            int       `json:"total_papers"`
	PapersWithHumanReviews int       `json:"papers_with_human_reviews"`
	PapersWithOurSystem    int       `json:"papers_with_our_system"`
	PapersWithOpenReviewer int       `json:"papers_with_openreviewer"`
	PapersWithDeepReviewer int       `json:"papers_with_deepreviewer"`
	CreatedAt              time.Time `json:"created_at"`
}
