package web

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/pairwise/internal/assign"
	"github.com/ppiankov/pairwise/internal/export"
	"github.com/ppiankov/pairwise/internal/model"
	"github.com/ppiankov/pairwise/internal/store"
	"github.com/ppiankov/pairwise/internal/survey"
)

const randomTitle = "Pairwise Review Comparison"

func (s *Server) randomRoutes(r *gin.Engine) {
	r.GET("/", s.randomHome)
	r.POST("/start", s.randomStart)
	r.GET("/evaluate", s.randomEvaluate)
	r.POST("/evaluate/submit", s.randomSubmit)
	r.POST("/evaluate/next", s.randomNext)
	r.GET("/evaluations/:id/download", s.randomDownload)
	r.GET("/api/stats", s.randomStats)
}

func (s *Server) startView(errMsg, evaluatorID string) GateView {
	n := s.notice()
	n.Error = errMsg
	return GateView{
		Notice:      n,
		Title:       randomTitle,
		Action:      "/start",
		EvaluatorID: evaluatorID,
	}
}

func (s *Server) randomHome(c *gin.Context) {
	st := s.sessions.get(c)
	if _, _, err := st.random.Current(); err == nil {
		seeOther(c, "/evaluate")
		return
	}
	s.renderGate(c, http.StatusOK, s.startView("", ""))
}

// assignNext draws a new pairing and reports failures on the start page
func (s *Server) assignNext(c *gin.Context, st *state, evaluatorID string) bool {
	_, err := st.random.Assign(evaluatorID)
	switch {
	case errors.Is(err, survey.ErrInvalidEvaluatorID):
		s.renderGate(c, http.StatusBadRequest, s.startView("Please enter your evaluator ID (letters, digits, '-' or '_')", evaluatorID))
		return false
	case errors.Is(err, assign.ErrNoEligiblePaper):
		s.logger.Error("random assignment failed", "error", err)
		s.renderGate(c, http.StatusServiceUnavailable, s.startView("No papers are available for comparison.", evaluatorID))
		return false
	case err != nil:
		s.renderGate(c, http.StatusInternalServerError, s.startView(err.Error(), evaluatorID))
		return false
	}
	return true
}

func (s *Server) randomStart(c *gin.Context) {
	st := s.sessions.get(c)
	evaluatorID := strings.TrimSpace(c.PostForm("evaluator_id"))
	if !s.assignNext(c, st, evaluatorID) {
		return
	}
	st.setEvaluator(evaluatorID)
	s.logger.Info("evaluator started", "evaluator", evaluatorID, "sessions", s.sessions.count())
	seeOther(c, "/evaluate")
}

func (s *Server) randomSession(c *gin.Context) (*state, bool) {
	st, ok := s.sessions.lookup(c)
	if !ok || st.evaluator() == "" {
		seeOther(c, "/")
		return nil, false
	}
	return st, true
}

func (s *Server) randomStatsFor(c *gin.Context) (survey.RandomStats, error) {
	records, err := s.judgments.List(c.Request.Context(), store.RandomKey)
	if err != nil {
		return survey.RandomStats{}, err
	}
	return survey.CountRandom(records), nil
}

func (s *Server) renderRandom(c *gin.Context, st *state, code int, n Notice) {
	a, submitted, err := st.random.Current()
	if err != nil {
		seeOther(c, "/")
		return
	}

	stats, err := s.randomStatsFor(c)
	if err != nil {
		s.logger.Error("load evaluations", "error", err)
	}
	evaluatorID := st.evaluator()

	v := AssignmentView{
		Notice:      n,
		EvaluatorID: evaluatorID,
		Assignment:  a,
		Submitted:   submitted,
		Rubric:      s.rubric,
		Stats:       stats,
		Mine:        stats.ByEvaluator[evaluatorID],
	}
	s.page(c, code, func(buf *bytes.Buffer) error { return RenderAssignment(buf, v) })
}

func (s *Server) randomEvaluate(c *gin.Context) {
	st, ok := s.randomSession(c)
	if !ok {
		return
	}
	s.renderRandom(c, st, http.StatusOK, s.flash(st))
}

func (s *Server) randomError(c *gin.Context, st *state, code int, msg string) {
	n := s.notice()
	n.Error = msg
	s.renderRandom(c, st, code, n)
}

func (s *Server) randomSubmit(c *gin.Context) {
	st, ok := s.randomSession(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var total int
	j, err := st.random.Submit(s.responses(c), c.PostForm("comment"), func(j model.Judgment) error {
		n, err := s.judgments.Append(ctx, store.RandomKey, j)
		total = n
		return err
	})
	var missing *survey.MissingResponsesError
	switch {
	case errors.As(err, &missing):
		s.randomError(c, st, http.StatusUnprocessableEntity, missing.Error())
		return
	case errors.Is(err, survey.ErrAlreadySubmitted):
		s.randomError(c, st, http.StatusConflict, "This comparison was already submitted. Load another one.")
		return
	case errors.Is(err, survey.ErrNoSample):
		seeOther(c, "/")
		return
	case errors.Is(err, survey.ErrNotSaved):
		s.logger.Error("save evaluation", "evaluator", st.evaluator(), "error", err)
		s.randomError(c, st, http.StatusInternalServerError, "Failed to save evaluation. Please try again.")
		return
	case err != nil:
		s.randomError(c, st, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("evaluation submitted",
		"evaluator", j.EvaluatorID,
		"evaluation", j.EvaluationID,
		"paper", j.PaperID,
		"total", total)
	st.setFlash(Notice{Message: "Evaluation submitted and downloaded.", DownloadURL: downloadURL(j.EvaluationID)})
	seeOther(c, "/evaluate")
}

func (s *Server) randomNext(c *gin.Context) {
	st, ok := s.randomSession(c)
	if !ok {
		return
	}
	if !s.assignNext(c, st, st.evaluator()) {
		return
	}
	seeOther(c, "/evaluate")
}

func (s *Server) randomDownload(c *gin.Context) {
	st, ok := s.sessions.lookup(c)
	if !ok || st.evaluator() == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no evaluator set"})
		return
	}
	evaluatorID := st.evaluator()
	id := c.Param("id")

	j, found, err := s.judgments.Find(c.Request.Context(), store.RandomKey, func(j model.Judgment) bool {
		return j.EvaluationID == id && j.EvaluatorID == evaluatorID
	})
	if err != nil {
		s.logger.Error("load evaluation", "evaluation", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load evaluation"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "evaluation not found"})
		return
	}

	body, err := export.Marshal(export.New(evaluatorID, j, s.now()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.download(c, export.RandomFilename(evaluatorID, j.EvaluationID), body)
}

func (s *Server) randomStats(c *gin.Context) {
	stats, err := s.randomStatsFor(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load evaluations"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
