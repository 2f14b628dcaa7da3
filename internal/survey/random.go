package survey

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/pairwise/internal/assign"
	"github.com/ppiankov/pairwise/internal/model"
)

// RandomSession hands out one random pairing at a time
type RandomSession struct {
	picker *assign.Picker
	rubric model.Rubric
	now    func() time.Time
	newID  func() string

	mu        sync.Mutex
	current   *assign.Assignment
	started   time.Time
	submitted bool
}

// NewRandomSession creates a session drawing from picker
func NewRandomSession(picker *assign.Picker, rubric model.Rubric) *RandomSession {
	return &RandomSession{
		picker: picker,
		rubric: rubric,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Rubric returns the session's rubric
func (s *RandomSession) Rubric() model.Rubric {
	return s.rubric
}

// Assign draws a new pairing for evaluatorID and starts its timer
func (s *RandomSession) Assign(evaluatorID string) (assign.Assignment, error) {
	evaluatorID = strings.TrimSpace(evaluatorID)
	if err := ValidateEvaluatorID(evaluatorID); err != nil {
		return assign.Assignment{}, err
	}

	a, err := s.picker.Pick(evaluatorID)
	if err != nil {
		return assign.Assignment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &a
	s.started = s.now()
	s.submitted = false
	return a, nil
}

// Current returns the active pairing and whether it was already submitted
func (s *RandomSession) Current() (assign.Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return assign.Assignment{}, false, ErrNoSample
	}
	return *s.current, s.submitted, nil
}

// Submit validates responses, builds the judgment of the active pairing and
// hands it to save. The pairing counts as submitted only once save succeeds.
// Every missing category is listed in the returned *MissingResponsesError.
func (s *RandomSession) Submit(responses map[string]string, comment string, save func(model.Judgment) error) (model.Judgment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return model.Judgment{}, ErrNoSample
	}
	if s.submitted {
		return model.Judgment{}, ErrAlreadySubmitted
	}
	if err := validateResponses(s.rubric, responses, false); err != nil {
		return model.Judgment{}, err
	}

	now := s.now()
	a := s.current
	j := model.Judgment{
		EvaluationID:     s.newID(),
		EvaluatorID:      a.EvaluatorID,
		PaperID:          a.PaperID,
		Reference:        a.Reference.Ref(),
		CandidateA:       a.CandidateA.Ref(),
		CandidateB:       a.CandidateB.Ref(),
		Responses:        s.rubric.Collect(responses),
		Comment:          strings.TrimSpace(comment),
		StartedAt:        s.started.UTC(),
		Timestamp:        now.UTC(),
		EvaluationTimeMS: now.Sub(s.started).Milliseconds(),
	}
	if save != nil {
		if err := save(j); err != nil {
			return model.Judgment{}, fmt.Errorf("%w: %w", ErrNotSaved, err)
		}
	}
	s.submitted = true
	return j, nil
}

// RandomStats are the counters shown on the random-pairing page
type RandomStats struct {
	Total       int            `json:"total"`
	ByEvaluator map[string]int `json:"by_evaluator"`
}

// CountRandom computes stats over the global judgment list
func CountRandom(records []model.Judgment) RandomStats {
	stats := RandomStats{Total: len(records), ByEvaluator: make(map[string]int)}
	for _, r := range records {
		stats.ByEvaluator[r.EvaluatorID]++
	}
	return stats
}
