package model

// Sample is one reference-plus-two-candidates bundle assigned to an evaluator
type Sample struct {
	PaperID           string         `json:"paper_id"`
	AssignmentType    AssignmentType `json:"assignment_type,omitempty"`
	EvaluatorSampleID string         `json:"evaluator_sample_id,omitempty"`
	ReferenceText     string         `json:"reference_text"`
	CandidateAText    string         `json:"candidate_a_text"`
	CandidateBText    string         `json:"candidate_b_text"`
	CandidateALabel   string         `json:"candidate_a_label,omitempty"` // Source label, never shown to the evaluator
	CandidateBLabel   string         `json:"candidate_b_label,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// AssignmentType tags how a sample was distributed across evaluators
type AssignmentType string

const (
	AssignmentOverlap AssignmentType = "overlap" // Shown to every evaluator for agreement measurement
	AssignmentUnique  AssignmentType = "unique"  // Shown to a single evaluator
)

// Badge returns the display badge for the assignment type, or "" when unknown
func (a AssignmentType) Badge() string {
	switch a {
	case AssignmentOverlap:
		return "Overlap Sample"
	case AssignmentUnique:
		return "Unique Sample"
	default:
		return ""
	}
}

// OrUnknown returns the type, or "unknown" when the sample carries none
func (a AssignmentType) OrUnknown() string {
	if a == "" {
		return "unknown"
	}
	return string(a)
}

// AuthConfig is the access-code file (auth_config.json)
type AuthConfig struct {
	AccessCodes []string `json:"access_codes"`
}

// AssignmentConfig maps evaluators to their sample files (static_evaluation_config.json)
type AssignmentConfig struct {
	EvaluatorFiles            map[string]string `json:"evaluator_files"`
	NumEvaluators             int               `json:"num_evaluators,omitempty"`
	OverlapSamples            int               `json:"overlap_samples,omitempty"`
	UniqueSamplesPerEvaluator int               `json:"unique_samples_per_evaluator,omitempty"`
}
