package web

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/pairwise/internal/auth"
	"github.com/ppiankov/pairwise/internal/export"
	"github.com/ppiankov/pairwise/internal/model"
	"github.com/ppiankov/pairwise/internal/store"
	"github.com/ppiankov/pairwise/internal/survey"
)

const hybridTitle = "Novelty Assessment Evaluation"

func (s *Server) hybridRoutes(r *gin.Engine) {
	r.GET("/", s.hybridHome)
	r.POST("/login", s.hybridLogin)
	r.GET("/evaluate", s.hybridEvaluate)
	r.POST("/evaluate/submit", s.hybridSubmit)
	r.POST("/evaluate/next", s.hybridNavigate(func(h *survey.HybridSession) error { return h.Next() }))
	r.POST("/evaluate/previous", s.hybridNavigate(func(h *survey.HybridSession) error { return h.Previous() }))
	r.POST("/evaluate/goto", s.hybridGoTo)
	r.GET("/evaluations/:id/download", s.hybridDownload)
	r.GET("/api/stats", s.hybridStats)
	r.GET("/api/state", s.hybridState)
}

func (s *Server) gateView(errMsg, evaluatorID string) GateView {
	n := s.notice()
	n.Error = errMsg
	return GateView{
		Notice:      n,
		Title:       hybridTitle,
		Action:      "/login",
		AccessCode:  true,
		EvaluatorID: evaluatorID,
	}
}

func (s *Server) renderGate(c *gin.Context, code int, v GateView) {
	s.page(c, code, func(buf *bytes.Buffer) error { return RenderGate(buf, v) })
}

func (s *Server) hybridHome(c *gin.Context) {
	st := s.sessions.get(c)
	h := st.hybrid

	if !h.Authenticated() {
		if token, err := c.Cookie(auth.CookieName); err == nil && token != "" {
			if h.Restore(token) {
				s.logger.Debug("session restored from access cookie")
			} else {
				s.sessions.clearCookie(c, auth.CookieName)
			}
		}
	}

	if h.Loaded() {
		seeOther(c, "/evaluate")
		return
	}
	s.renderGate(c, http.StatusOK, s.gateView("", ""))
}

func (s *Server) hybridLogin(c *gin.Context) {
	st := s.sessions.get(c)
	h := st.hybrid

	code := strings.TrimSpace(c.PostForm("access_code"))
	evaluatorID := strings.TrimSpace(c.PostForm("evaluator_id"))

	if code == "" && !h.Authenticated() {
		s.renderGate(c, http.StatusBadRequest, s.gateView("Please enter an access code", evaluatorID))
		return
	}
	if err := survey.ValidateEvaluatorID(evaluatorID); err != nil {
		s.renderGate(c, http.StatusBadRequest, s.gateView("Please enter a valid evaluator ID (0, 1, 2, ...)", evaluatorID))
		return
	}
	if code != "" {
		if !h.Authenticate(code) {
			s.renderGate(c, http.StatusUnauthorized, s.gateView("Invalid access code. Please contact the research team for the correct code.", evaluatorID))
			return
		}
		s.sessions.setCookie(c, auth.CookieName, h.Token())
	}

	samples, err := s.loader.LoadEvaluatorSamples(c.Request.Context(), s.assignment, evaluatorID)
	if err != nil {
		s.logger.Warn("load evaluator samples", "evaluator", evaluatorID, "error", err)
		s.renderGate(c, http.StatusBadRequest, s.gateView("Failed to load samples for evaluator "+evaluatorID+". Please check your ID and try again.", evaluatorID))
		return
	}
	if err := h.Load(evaluatorID, samples, s.assignment != nil); err != nil {
		s.renderGate(c, http.StatusBadRequest, s.gateView(err.Error(), evaluatorID))
		return
	}

	s.logger.Info("evaluator loaded", "evaluator", evaluatorID, "samples", len(samples), "sessions", s.sessions.count())
	seeOther(c, "/evaluate")
}

// hybridSession returns the caller's loaded session or redirects to the gate
func (s *Server) hybridSession(c *gin.Context) (*state, bool) {
	st, ok := s.sessions.lookup(c)
	if !ok || !st.hybrid.Loaded() {
		seeOther(c, "/")
		return nil, false
	}
	return st, true
}

func (s *Server) hybridStatsFor(c *gin.Context, evaluatorID string) survey.HybridStats {
	records, err := s.evaluations.List(c.Request.Context(), store.HybridKey(evaluatorID))
	if err != nil {
		s.logger.Error("load completed evaluations", "evaluator", evaluatorID, "error", err)
		return survey.HybridStats{}
	}
	return survey.CountHybrid(records)
}

func (s *Server) hybridEvaluate(c *gin.Context) {
	st, ok := s.hybridSession(c)
	if !ok {
		return
	}
	s.renderHybrid(c, st, http.StatusOK, s.flash(st))
}

// renderHybrid shows the current sample, or the completion page
func (s *Server) renderHybrid(c *gin.Context, st *state, code int, n Notice) {
	h := st.hybrid
	evaluatorID := h.EvaluatorID()
	stats := s.hybridStatsFor(c, evaluatorID)

	sample, pos, err := h.Current()
	if err != nil {
		seeOther(c, "/")
		return
	}

	if pos.Completed {
		v := CompletionView{Notice: n, EvaluatorID: evaluatorID, Total: pos.Total, Stats: stats}
		s.page(c, code, func(buf *bytes.Buffer) error { return RenderCompletion(buf, v) })
		return
	}

	v := SampleView{
		Notice:      n,
		EvaluatorID: evaluatorID,
		Info:        h.Info(),
		Sample:      sample,
		Position:    pos,
		Rubric:      s.rubric,
		Stats:       stats,
	}
	s.page(c, code, func(buf *bytes.Buffer) error { return RenderSample(buf, v) })
}

func (s *Server) hybridError(c *gin.Context, st *state, code int, msg string) {
	n := s.notice()
	n.Error = msg
	s.renderHybrid(c, st, code, n)
}

func (s *Server) hybridSubmit(c *gin.Context) {
	st, ok := s.hybridSession(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var total int
	eval, err := st.hybrid.Submit(s.responses(c), func(e model.Evaluation) error {
		n, err := s.evaluations.Append(ctx, store.HybridKey(e.EvaluatorID), e)
		total = n
		return err
	})
	var missing *survey.MissingResponsesError
	switch {
	case errors.As(err, &missing):
		s.hybridError(c, st, http.StatusUnprocessableEntity, missing.Error())
		return
	case errors.Is(err, survey.ErrAlreadySubmitted):
		s.hybridError(c, st, http.StatusConflict, "This sample was already submitted. Move to the next sample.")
		return
	case errors.Is(err, survey.ErrCompleted):
		seeOther(c, "/evaluate")
		return
	case errors.Is(err, survey.ErrNotSaved):
		s.logger.Error("save evaluation", "evaluator", st.hybrid.EvaluatorID(), "error", err)
		s.hybridError(c, st, http.StatusInternalServerError, "Failed to save evaluation. Please try again.")
		return
	case err != nil:
		s.hybridError(c, st, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("evaluation submitted",
		"evaluator", eval.EvaluatorID,
		"evaluation", eval.EvaluationID,
		"sample", eval.SampleIndex,
		"completed", total)
	st.setFlash(Notice{Message: "Evaluation submitted and downloaded.", DownloadURL: downloadURL(eval.EvaluationID)})
	seeOther(c, "/evaluate")
}

func (s *Server) hybridNavigate(move func(*survey.HybridSession) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, ok := s.hybridSession(c)
		if !ok {
			return
		}
		if err := move(st.hybrid); err != nil && !errors.Is(err, survey.ErrCompleted) {
			s.hybridError(c, st, http.StatusBadRequest, err.Error())
			return
		}
		seeOther(c, "/evaluate")
	}
}

func (s *Server) hybridGoTo(c *gin.Context) {
	st, ok := s.hybridSession(c)
	if !ok {
		return
	}

	_, pos, _ := st.hybrid.Current()
	number, err := strconv.Atoi(strings.TrimSpace(c.PostForm("sample_number")))
	if err == nil {
		err = st.hybrid.GoTo(number)
	}
	if errors.Is(err, survey.ErrCompleted) {
		seeOther(c, "/evaluate")
		return
	}
	if err != nil {
		s.hybridError(c, st, http.StatusBadRequest, "Please enter a valid sample number (1-"+strconv.Itoa(pos.Total)+")")
		return
	}
	seeOther(c, "/evaluate")
}

func (s *Server) hybridDownload(c *gin.Context) {
	st, ok := s.sessions.lookup(c)
	if !ok || !st.hybrid.Loaded() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no evaluator loaded"})
		return
	}
	evaluatorID := st.hybrid.EvaluatorID()
	id := c.Param("id")

	eval, found, err := s.evaluations.Find(c.Request.Context(), store.HybridKey(evaluatorID), func(e model.Evaluation) bool {
		return e.EvaluationID == id
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

	now := s.now()
	body, err := export.Marshal(export.New(evaluatorID, eval, now))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.download(c, export.HybridFilename(evaluatorID, eval.EvaluatorSampleID, now), body)
}

func (s *Server) hybridStats(c *gin.Context) {
	st, ok := s.sessions.lookup(c)
	if !ok || !st.hybrid.Loaded() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no evaluator loaded"})
		return
	}
	c.JSON(http.StatusOK, s.hybridStatsFor(c, st.hybrid.EvaluatorID()))
}

type hybridStateResponse struct {
	Authenticated  bool   `json:"authenticated"`
	EvaluatorID    string `json:"evaluator_id,omitempty"`
	Index          int    `json:"index"`
	Total          int    `json:"total"`
	Submitted      bool   `json:"submitted"`
	Completed      bool   `json:"completed"`
	Overlap        int    `json:"overlap_samples"`
	Unique         int    `json:"unique_samples"`
	AssignmentType string `json:"assignment_type,omitempty"`
}

func (s *Server) hybridState(c *gin.Context) {
	resp := hybridStateResponse{}
	if st, ok := s.sessions.lookup(c); ok {
		h := st.hybrid
		resp.Authenticated = h.Authenticated()
		resp.EvaluatorID = h.EvaluatorID()
		if _, pos, err := h.Current(); err == nil {
			info := h.Info()
			resp.Index = pos.Index
			resp.Total = pos.Total
			resp.Submitted = pos.Submitted
			resp.Completed = pos.Completed
			resp.Overlap = info.Overlap
			resp.Unique = info.Unique
			resp.AssignmentType = info.Kind()
		}
	}
	c.JSON(http.StatusOK, resp)
}
