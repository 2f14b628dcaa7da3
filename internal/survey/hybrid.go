// Package survey holds the per-session application state of both survey
// variants. It performs no I/O: samples come in, records go out.
package survey

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/ppiankov/pairwise/internal/auth"
	"github.com/ppiankov/pairwise/internal/model"
)

// HybridSession walks one evaluator through an assigned list of samples
type HybridSession struct {
	gate   *auth.Gate
	rubric model.Rubric
	now    func() time.Time
	rng    *rand.Rand

	mu            sync.Mutex
	authenticated bool
	code          string
	evaluatorID   string
	samples       []model.Sample
	assigned      bool
	index         int
	started       time.Time
	submitted     bool
	completed     bool
}

// NewHybridSession creates an unauthenticated session
func NewHybridSession(gate *auth.Gate, rubric model.Rubric) *HybridSession {
	return &HybridSession{
		gate:   gate,
		rubric: rubric,
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Rubric returns the session's rubric
func (s *HybridSession) Rubric() model.Rubric {
	return s.rubric
}

// Authenticate checks code against the gate; on success the session stays
// authenticated for its lifetime.
func (s *HybridSession) Authenticate(code string) bool {
	if !s.gate.Authenticate(code) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	s.code = code
	return true
}

// Restore authenticates from an encoded access token
func (s *HybridSession) Restore(token string) bool {
	code, err := auth.Decode(token)
	if err != nil {
		return false
	}
	return s.Authenticate(code)
}

// Authenticated reports whether an access code was accepted
func (s *HybridSession) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Token returns the encoded access code for the session cookie
func (s *HybridSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		return ""
	}
	return auth.Encode(s.code)
}

// Load installs the evaluator's sample list and shows the first sample.
// assigned reports whether the list came from an assignment configuration.
func (s *HybridSession) Load(evaluatorID string, samples []model.Sample, assigned bool) error {
	if err := ValidateEvaluatorID(evaluatorID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated {
		return ErrAuthRequired
	}
	if len(samples) == 0 {
		return ErrNoSample
	}

	s.evaluatorID = evaluatorID
	s.samples = samples
	s.assigned = assigned
	s.completed = false
	s.show(0)
	return nil
}

// Loaded reports whether samples are installed
func (s *HybridSession) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples) > 0
}

// EvaluatorID returns the loaded evaluator, or "" before Load
func (s *HybridSession) EvaluatorID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluatorID
}

// Position is the cursor state shown to the evaluator
type Position struct {
	Index     int // 0-based
	Total     int
	Submitted bool
	Completed bool
}

// Number returns the 1-based sample number
func (p Position) Number() int {
	return p.Index + 1
}

// Current returns the sample under the cursor
func (s *HybridSession) Current() (model.Sample, Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.samples) == 0 {
		return model.Sample{}, Position{}, ErrNoSample
	}
	return s.samples[s.index], s.position(), nil
}

// Completed reports whether the evaluator advanced past the last sample
func (s *HybridSession) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Next advances the cursor. At the last sample it completes the session
// instead and leaves the cursor where it is.
func (s *HybridSession) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.navigable(); err != nil {
		return err
	}
	if s.index+1 >= len(s.samples) {
		s.completed = true
		return nil
	}
	s.show(s.index + 1)
	return nil
}

// Previous moves back one sample; at the first sample it does nothing
func (s *HybridSession) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.navigable(); err != nil {
		return err
	}
	if s.index > 0 {
		s.show(s.index - 1)
	}
	return nil
}

// GoTo jumps to a 1-based sample number
func (s *HybridSession) GoTo(number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.navigable(); err != nil {
		return err
	}
	if number < 1 || number > len(s.samples) {
		return fmt.Errorf("%w: please enter a valid sample number (1-%d)", ErrOutOfRange, len(s.samples))
	}
	s.show(number - 1)
	return nil
}

// Submit validates responses against the rubric, builds the record of the
// current sample and hands it to save. The sample counts as submitted only
// once save succeeds; a save error is wrapped in ErrNotSaved and the sample
// can be submitted again. A missing response yields a *MissingResponsesError
// naming the first gap. A nil save accepts the record as is.
func (s *HybridSession) Submit(responses map[string]string, save func(model.Evaluation) error) (model.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.navigable(); err != nil {
		return model.Evaluation{}, err
	}
	if s.submitted {
		return model.Evaluation{}, ErrAlreadySubmitted
	}
	if err := validateResponses(s.rubric, responses, true); err != nil {
		return model.Evaluation{}, err
	}

	now := s.now()
	sample := s.samples[s.index]
	metadata := sample.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	eval := model.Evaluation{
		EvaluationID:      s.evaluationID(now),
		EvaluatorID:       s.evaluatorID,
		SampleIndex:       s.index,
		PaperID:           sample.PaperID,
		AssignmentType:    sample.AssignmentType,
		EvaluatorSampleID: sample.EvaluatorSampleID,
		ReferenceText:     sample.ReferenceText,
		CandidateA:        model.Candidate{Label: sample.CandidateALabel, Text: sample.CandidateAText},
		CandidateB:        model.Candidate{Label: sample.CandidateBLabel, Text: sample.CandidateBText},
		Responses:         s.rubric.Collect(responses),
		Metadata:          metadata,
		Timestamp:         now.UTC(),
		EvaluationTimeMS:  now.Sub(s.started).Milliseconds(),
	}
	if save != nil {
		if err := save(eval); err != nil {
			return model.Evaluation{}, fmt.Errorf("%w: %w", ErrNotSaved, err)
		}
	}
	s.submitted = true
	return eval, nil
}

// Info summarizes the loaded assignment
type Info struct {
	Total    int
	Overlap  int
	Unique   int
	Assigned bool
}

// Kind returns the evaluation mode label shown to the evaluator
func (i Info) Kind() string {
	if i.Assigned {
		return "Hybrid evaluation"
	}
	return "Standard evaluation"
}

// Info counts the loaded samples by assignment type
func (s *HybridSession) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{Total: len(s.samples), Assigned: s.assigned}
	for _, sample := range s.samples {
		switch sample.AssignmentType {
		case model.AssignmentOverlap:
			info.Overlap++
		case model.AssignmentUnique:
			info.Unique++
		}
	}
	return info
}

func (s *HybridSession) navigable() error {
	if len(s.samples) == 0 {
		return ErrNoSample
	}
	if s.completed {
		return ErrCompleted
	}
	return nil
}

// show moves the cursor and resets the per-sample form state
func (s *HybridSession) show(index int) {
	s.index = index
	s.submitted = false
	s.started = s.now()
}

func (s *HybridSession) position() Position {
	return Position{
		Index:     s.index,
		Total:     len(s.samples),
		Submitted: s.submitted,
		Completed: s.completed,
	}
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// evaluationID returns eval_<evaluator>_<unix ms>_<9 base36 chars>
func (s *HybridSession) evaluationID(now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = idAlphabet[s.rng.IntN(len(idAlphabet))]
	}
	return "eval_" + s.evaluatorID + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix)
}

// HybridStats are the counters shown under the hybrid form
type HybridStats struct {
	Completed int `json:"completed"`
	Overlap   int `json:"overlap"`
	Unique    int `json:"unique"`
}

// CountHybrid computes stats over an evaluator's persisted records
func CountHybrid(records []model.Evaluation) HybridStats {
	stats := HybridStats{Completed: len(records)}
	for _, r := range records {
		switch r.AssignmentType {
		case model.AssignmentOverlap:
			stats.Overlap++
		case model.AssignmentUnique:
			stats.Unique++
		}
	}
	return stats
}
