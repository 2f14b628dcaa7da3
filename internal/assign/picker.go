// Package assign draws random reference/candidate pairings from the paper set.
package assign

import (
	"errors"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/ppiankov/pairwise/internal/model"
)

// ErrNoEligiblePaper is returned when no paper can supply a reference and two candidates
var ErrNoEligiblePaper = errors.New("no paper has a human reference and two other reviews")

// minReviews is the smallest paper that yields a reference plus two candidates
const minReviews = 3

// Assignment is one randomly drawn comparison
type Assignment struct {
	EvaluatorID string       `json:"evaluator_id"`
	PaperID     string       `json:"paper_id"`
	Reference   model.Review `json:"reference"`
	CandidateA  model.Review `json:"candidate_a"`
	CandidateB  model.Review `json:"candidate_b"`
}

// Picker selects assignments from a fixed paper set
type Picker struct {
	papers   model.PaperSet
	eligible []string

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewPicker precomputes the eligible papers. A nil rng uses a randomly seeded source.
func NewPicker(papers model.PaperSet, rng *rand.Rand) *Picker {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	var eligible []string
	for id, paper := range papers {
		if Eligible(paper) {
			eligible = append(eligible, id)
		}
	}
	// Map order is random; sort so a seeded rng is reproducible
	sort.Strings(eligible)

	return &Picker{papers: papers, eligible: eligible, rng: rng}
}

// Eligible reports whether a paper has a human review and at least two other reviews
func Eligible(p model.Paper) bool {
	return p.Has(model.SourceHuman) && p.Count() >= minReviews
}

// Papers returns the number of papers in the set
func (p *Picker) Papers() int {
	return len(p.papers)
}

// EligiblePapers returns the number of papers Pick can draw from
func (p *Picker) EligiblePapers() int {
	return len(p.eligible)
}

// Pick draws a paper, a human reference and two distinct candidates from the
// paper's remaining reviews, in random A/B order.
func (p *Picker) Pick(evaluatorID string) (Assignment, error) {
	if len(p.eligible) == 0 {
		return Assignment{}, ErrNoEligiblePaper
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	paperID := p.eligible[p.rng.IntN(len(p.eligible))]
	paper := p.papers[paperID]

	humans := paper[model.SourceHuman]
	refIdx := p.rng.IntN(len(humans))
	ref := humans[refIdx]

	pool := make([]model.Review, 0, paper.Count()-1)
	for _, source := range sortedSources(paper) {
		for idx, r := range paper[source] {
			if source == model.SourceHuman && idx == refIdx {
				continue
			}
			pool = append(pool, r)
		}
	}

	i := p.rng.IntN(len(pool))
	j := p.rng.IntN(len(pool) - 1)
	if j >= i {
		j++
	}
	a, b := pool[i], pool[j]
	if p.rng.IntN(2) == 1 {
		a, b = b, a
	}

	return Assignment{
		EvaluatorID: evaluatorID,
		PaperID:     paperID,
		Reference:   ref,
		CandidateA:  a,
		CandidateB:  b,
	}, nil
}

func sortedSources(p model.Paper) []model.SourceType {
	sources := make([]model.SourceType, 0, len(p))
	for s := range p {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}
