package web

import (
	"embed"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/ppiankov/pairwise/internal/assign"
	"github.com/ppiankov/pairwise/internal/model"
	"github.com/ppiankov/pairwise/internal/survey"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Notice is the inline message block shared by every page.
// Messages clear themselves after MessageDelayMS.
type Notice struct {
	Error          string
	Message        string
	DownloadURL    string // Fetched automatically once the page loads
	MessageDelayMS int64
}

func newNotice(delay time.Duration) Notice {
	return Notice{MessageDelayMS: delay.Milliseconds()}
}

// GateView is the entry page: access code (hybrid) and evaluator id
type GateView struct {
	Notice
	Title       string
	Action      string
	AccessCode  bool
	EvaluatorID string
}

// SampleView is the hybrid evaluation page
type SampleView struct {
	Notice
	EvaluatorID string
	Info        survey.Info
	Sample      model.Sample
	Position    survey.Position
	Rubric      model.Rubric
	Stats       survey.HybridStats
}

// SampleID returns the evaluator sample id, or the index when the sample has none
func (v SampleView) SampleID() string {
	if v.Sample.EvaluatorSampleID != "" {
		return v.Sample.EvaluatorSampleID
	}
	return strconv.Itoa(v.Position.Index)
}

// CompletionView is shown once the hybrid evaluator advanced past the last sample
type CompletionView struct {
	Notice
	EvaluatorID string
	Total       int
	Stats       survey.HybridStats
}

// AssignmentView is the random-pairing evaluation page
type AssignmentView struct {
	Notice
	EvaluatorID string
	Assignment  assign.Assignment
	Submitted   bool
	Rubric      model.Rubric
	Stats       survey.RandomStats
	Mine        int
}

// RenderGate writes the entry page
func RenderGate(w io.Writer, v GateView) error {
	return pages.ExecuteTemplate(w, "gate", v)
}

// RenderSample writes the hybrid evaluation page
func RenderSample(w io.Writer, v SampleView) error {
	return pages.ExecuteTemplate(w, "sample", v)
}

// RenderCompletion writes the hybrid completion page
func RenderCompletion(w io.Writer, v CompletionView) error {
	return pages.ExecuteTemplate(w, "completion", v)
}

// RenderAssignment writes the random-pairing evaluation page
func RenderAssignment(w io.Writer, v AssignmentView) error {
	return pages.ExecuteTemplate(w, "assignment", v)
}
