package model

import "time"

// Candidate is one side of a hybrid comparison as persisted in the record
type Candidate struct {
	Label string `json:"label"` // Source label, kept for analysis
	Text  string `json:"text"`
}

// Evaluation is the persisted outcome of one hybrid judgment pass
type Evaluation struct {
	EvaluationID      string            `json:"evaluation_id"`
	EvaluatorID       string            `json:"evaluator_id"`
	SampleIndex       int               `json:"sample_index"`
	PaperID           string            `json:"paper_id"`
	AssignmentType    AssignmentType    `json:"assignment_type,omitempty"`
	EvaluatorSampleID string            `json:"evaluator_sample_id,omitempty"`
	ReferenceText     string            `json:"reference_text"`
	CandidateA        Candidate         `json:"candidate_a"`
	CandidateB        Candidate         `json:"candidate_b"`
	Responses         map[string]string `json:"responses"` // Category id -> option id
	Metadata          map[string]any    `json:"metadata"`
	Timestamp         time.Time         `json:"timestamp"`
	EvaluationTimeMS  int64             `json:"evaluation_time_ms"`
}

// Judgment is the persisted outcome of one random-pairing judgment pass
type Judgment struct {
	EvaluationID     string            `json:"evaluation_id"`
	EvaluatorID      string            `json:"evaluator_id"`
	PaperID          string            `json:"paper_id"`
	Reference        ReviewRef         `json:"reference"`
	CandidateA       ReviewRef         `json:"candidate_a"`
	CandidateB       ReviewRef         `json:"candidate_b"`
	Responses        map[string]string `json:"responses"`
	Comment          string            `json:"comment,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
	Timestamp        time.Time         `json:"timestamp"`
	EvaluationTimeMS int64             `json:"evaluation_time_ms"`
}

// Export is the envelope written to every downloaded evaluation file
type Export struct {
	EvaluatorID     string    `json:"evaluator_id"`
	Evaluation      any       `json:"evaluation"`
	ExportTimestamp time.Time `json:"export_timestamp"`
}
