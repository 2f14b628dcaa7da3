// Package web serves both survey variants over HTTP.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ppiankov/pairwise/internal/assign"
	"github.com/ppiankov/pairwise/internal/auth"
	"github.com/ppiankov/pairwise/internal/export"
	"github.com/ppiankov/pairwise/internal/model"
	"github.com/ppiankov/pairwise/internal/rubric"
	"github.com/ppiankov/pairwise/internal/source"
	"github.com/ppiankov/pairwise/internal/store"
	"github.com/ppiankov/pairwise/internal/survey"
)

// Server is the HTTP surface of one survey variant
type Server struct {
	cfg      model.ServerConfig
	engine   *gin.Engine
	sessions *sessions
	loader   *source.Loader
	rubric   model.Rubric
	logger   *slog.Logger
	now      func() time.Time

	// hybrid
	gate        *auth.Gate
	assignment  *model.AssignmentConfig
	evaluations *store.Ledger[model.Evaluation]

	// random
	picker    *assign.Picker
	judgments *store.Ledger[model.Judgment]
}

// New loads the variant's configuration from loader and builds the router.
// Hybrid mode reads the auth config, then the assignment config; random mode reads papers.json.
func New(ctx context.Context, cfg model.ServerConfig, loader *source.Loader, st store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("unknown mode: %s (supported: hybrid, random)", cfg.Mode)
	}

	s := &Server{
		cfg:    cfg,
		loader: loader,
		rubric: rubric.ForMode(cfg.Mode),
		logger: logger,
		now:    time.Now,
	}

	switch cfg.Mode {
	case model.ModeHybrid:
		s.gate = auth.NewGate(loader.LoadAuthConfig(ctx))
		s.assignment = loader.LoadAssignmentConfig(ctx)
		logger.Info("hybrid survey configured",
			"access_codes", len(s.gate.Codes()),
			"assigned_evaluators", assignedEvaluators(s.assignment))
		s.evaluations = store.NewLedger[model.Evaluation](st)
		s.sessions = newSessions(cfg.SessionTTL, cfg.SecureCookie, func() *state {
			return &state{hybrid: survey.NewHybridSession(s.gate, s.rubric)}
		})

	case model.ModeRandom:
		papers, err := loader.LoadPapers(ctx)
		if err != nil {
			return nil, err
		}
		s.picker = assign.NewPicker(papers, nil)
		if s.picker.EligiblePapers() == 0 {
			logger.Warn("no paper is eligible for random pairing", "papers", s.picker.Papers())
		}
		s.judgments = store.NewLedger[model.Judgment](st)
		s.sessions = newSessions(cfg.SessionTTL, cfg.SecureCookie, func() *state {
			return &state{random: survey.NewRandomSession(s.picker, s.rubric)}
		})
	}

	s.engine = s.router()
	return s, nil
}

// assignedEvaluators counts the evaluators of an assignment config; 0 means single-evaluator fallback
func assignedEvaluators(a *model.AssignmentConfig) int {
	if a == nil {
		return 0
	}
	return len(a.EvaluatorFiles)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(corsConfig(s.cfg.CORSOrigins)))

	if !s.loader.Remote() {
		r.StaticFS("/data", gin.Dir(s.loader.Base(), false))
	}

	if s.cfg.Mode == model.ModeRandom {
		s.randomRoutes(r)
	} else {
		s.hybridRoutes(r)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-errCh
		return nil
	}
}

// page renders into a buffer first so template errors never produce half a page
func (s *Server) page(c *gin.Context, code int, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.logger.Error("render page", "path", c.Request.URL.Path, "error", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(code, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) notice() Notice {
	return newNotice(s.cfg.MessageDelay)
}

// flash merges a pending notice into a fresh one
func (s *Server) flash(st *state) Notice {
	n := st.takeFlash()
	n.MessageDelayMS = s.cfg.MessageDelay.Milliseconds()
	return n
}

// responses reads one form value per rubric category
func (s *Server) responses(c *gin.Context) map[string]string {
	out := make(map[string]string, len(s.rubric.Categories))
	for _, cat := range s.rubric.Categories {
		if v, ok := c.GetPostForm(cat.ID); ok {
			out[cat.ID] = v
		}
	}
	return out
}

func downloadURL(evaluationID string) string {
	return "/evaluations/" + evaluationID + "/download"
}

func (s *Server) download(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, body)
}

func seeOther(c *gin.Context, path string) {
	c.Redirect(http.StatusSeeOther, path)
}
