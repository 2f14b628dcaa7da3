package survey

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/pairwise/internal/model"
)

var (
	ErrAuthRequired       = errors.New("authentication required")
	ErrNoSample           = errors.New("no sample loaded")
	ErrOutOfRange         = errors.New("sample number out of range")
	ErrCompleted          = errors.New("all samples completed")
	ErrAlreadySubmitted   = errors.New("sample already submitted")
	ErrInvalidEvaluatorID = errors.New("invalid evaluator ID")
	ErrNotSaved           = errors.New("record not saved")
)

// MissingResponsesError is returned by Submit when categories lack a response
type MissingResponsesError struct {
	Missing []model.Category
	// FirstOnly names only the first missing category in the message
	FirstOnly bool
}

func (e *MissingResponsesError) Error() string {
	if len(e.Missing) == 0 {
		return "missing responses"
	}
	if e.FirstOnly {
		return "Please complete all evaluations. Missing: " + e.Missing[0].Title
	}
	titles := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		titles[i] = c.Title
	}
	return "Please complete all categories. Missing: " + strings.Join(titles, ", ")
}

// validateResponses returns a *MissingResponsesError when r.Validate reports gaps
func validateResponses(r model.Rubric, responses map[string]string, firstOnly bool) error {
	ids := r.Validate(responses)
	if len(ids) == 0 {
		return nil
	}
	missing := make([]model.Category, 0, len(ids))
	for _, id := range ids {
		c, _ := r.Category(id)
		missing = append(missing, c)
	}
	return &MissingResponsesError{Missing: missing, FirstOnly: firstOnly}
}

// IDs returns the missing category ids in rubric order
func (e *MissingResponsesError) IDs() []string {
	ids := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		ids[i] = c.ID
	}
	return ids
}

var evaluatorIDPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)

// ValidateEvaluatorID rejects ids that are empty, start with '-' or would
// not be safe inside a storage key or file name.
func ValidateEvaluatorID(id string) error {
	if !evaluatorIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidEvaluatorID, id)
	}
	return nil
}
