package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/goleak"

	"github.com/ppiankov/pairwise/internal/auth"
	"github.com/ppiankov/pairwise/internal/model"
	"github.com/ppiankov/pairwise/internal/source"
	"github.com/ppiankov/pairwise/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const hybridSamples = `[
  {"paper_id":"p1","assignment_type":"overlap","evaluator_sample_id":"0_0","reference_text":"reference one","candidate_a_text":"alpha one","candidate_b_text":"beta one","candidate_a_label":"ours","candidate_b_label":"openreviewer"},
  {"paper_id":"p2","assignment_type":"unique","evaluator_sample_id":"0_1","reference_text":"reference two","candidate_a_text":"alpha two","candidate_b_text":"beta two"},
  {"paper_id":"p3","assignment_type":"unique","evaluator_sample_id":"0_2","reference_text":"reference three","candidate_a_text":"alpha three","candidate_b_text":"beta three"}
]`

const papersJSON = `{
  "p1": {
    "human": [{"id":"human_r1","type":"human","label":"Human Review (r1)","content":"human text"}],
    "ours": [{"id":"ours_summary","type":"ours","label":"Our System","content":"ours text"}],
    "deepreviewer": [{"id":"deepreviewer","type":"deepreviewer","label":"DeepReviewer","content":"deep text"}]
  }
}`

func dataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		source.AuthConfigFile:       `{"access_codes":["PILOT"]}`,
		source.AssignmentConfigFile: `{"evaluator_files":{"0":"assigned_0.json"},"num_evaluators":1}`,
		"assigned_0.json":           hybridSamples,
		source.PapersFile:           papersJSON,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestServer(t *testing.T, mode model.Mode) (*Server, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	return newTestServerWithStore(t, mode, st), st
}

func newTestServerWithStore(t *testing.T, mode model.Mode, st store.Store) *Server {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Server.Mode = mode
	cfg.Data.Base = dataDir(t)

	s, err := New(context.Background(), cfg.Server, source.NewLoader(cfg.Data, quietLogger), st, quietLogger)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.now = func() time.Time { return time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC) }
	return s
}

// browser replays cookies between requests and never follows redirects
type browser struct {
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(s *Server) *browser {
	return &browser{handler: s.Handler(), cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	b.handler.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rr
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func expectRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}

func expectBody(t *testing.T, rr *httptest.ResponseRecorder, code int, fragments ...string) {
	t.Helper()
	if rr.Code != code {
		t.Fatalf("expected %d, got %d: %s", code, rr.Code, rr.Body.String())
	}
	for _, f := range fragments {
		if !strings.Contains(rr.Body.String(), f) {
			t.Errorf("body missing %q", f)
		}
	}
}

func hybridForm(option string, skip ...string) url.Values {
	form := url.Values{}
	for _, id := range []string{"novelty_reasoning_alignment", "novelty_decision_alignment", "claim_substantiation", "analytical_quality"} {
		form.Set(id, option)
	}
	for _, id := range skip {
		form.Del(id)
	}
	return form
}

func login(t *testing.T, b *browser) {
	t.Helper()
	expectBody(t, b.get("/"), http.StatusOK, `id="access-code"`)
	expectRedirect(t, b.post("/login", url.Values{"access_code": {"pilot"}, "evaluator_id": {"0"}}), "/evaluate")
}

func TestHybrid_GateErrors(t *testing.T) {
	s, _ := newTestServer(t, model.ModeHybrid)
	b := newBrowser(s)

	tests := []struct {
		name string
		form url.Values
		code int
		msg  string
	}{
		{"no code", url.Values{"evaluator_id": {"0"}}, http.StatusBadRequest, "Please enter an access code"},
		{"bad evaluator", url.Values{"access_code": {"PILOT"}, "evaluator_id": {"-1"}}, http.StatusBadRequest, "Please enter a valid evaluator ID"},
		{"wrong code", url.Values{"access_code": {"NOVELTY2025"}, "evaluator_id": {"0"}}, http.StatusUnauthorized, "Invalid access code"},
		{"unknown evaluator", url.Values{"access_code": {"PILOT"}, "evaluator_id": {"9"}}, http.StatusBadRequest, "Failed to load samples for evaluator 9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := b.post("/login", tt.form)
			expectBody(t, rr, tt.code, tt.msg, `id="auth-gate"`)
		})
	}

	// Unloaded sessions are sent back to the gate
	expectRedirect(t, b.get("/evaluate"), "/")
}

func TestHybrid_SubmitFlow(t *testing.T) {
	s, st := newTestServer(t, model.ModeHybrid)
	b := newBrowser(s)
	login(t, b)

	token := b.cookies[auth.CookieName]
	if token == nil {
		t.Fatal("expected evalauth cookie")
	}
	if value, _ := url.QueryUnescape(token.Value); value != auth.Encode("pilot") {
		t.Fatalf("expected evalauth cookie with encoded code, got %q", token.Value)
	}

	expectBody(t, b.get("/evaluate"), http.StatusOK,
		"reference one", "alpha one", "Overlap Sample",
		`<span id="current-sample">1</span>`, "Hybrid evaluation")

	rr := b.post("/evaluate/submit", hybridForm("tie", "claim_substantiation"))
	expectBody(t, rr, http.StatusUnprocessableEntity, "Please complete all evaluations. Missing: Claim Substantiation")

	ledger := store.NewLedger[model.Evaluation](st)
	if n, _ := ledger.Count(context.Background(), store.HybridKey("0")); n != 0 {
		t.Fatalf("rejected submit persisted %d records", n)
	}

	expectRedirect(t, b.post("/evaluate/submit", hybridForm("a_wins")), "/evaluate")

	records, err := ledger.List(context.Background(), store.HybridKey("0"))
	if err != nil || len(records) != 1 {
		t.Fatalf("expected 1 record, got %d (%v)", len(records), err)
	}
	rec := records[0]
	if rec.PaperID != "p1" || rec.CandidateA.Label != "ours" || len(rec.Responses) != 4 {
		t.Errorf("unexpected record %+v", rec)
	}

	page := b.get("/evaluate")
	expectBody(t, page, http.StatusOK, `/evaluations/`+rec.EvaluationID+`/download`, "Evaluation submitted")

	// The flash is consumed by one render
	if strings.Contains(b.get("/evaluate").Body.String(), `id="auto-download"`) {
		t.Error("download should only trigger once")
	}

	expectBody(t, b.post("/evaluate/submit", hybridForm("tie")), http.StatusConflict, "already submitted")

	dl := b.get("/evaluations/" + rec.EvaluationID + "/download")
	if dl.Code != http.StatusOK {
		t.Fatalf("download failed: %d %s", dl.Code, dl.Body.String())
	}
	want := `attachment; filename="eval_0_0_0_1738555506000.json"`
	if got := dl.Header().Get("Content-Disposition"); got != want {
		t.Errorf("Content-Disposition = %s, want %s", got, want)
	}
	var exp struct {
		EvaluatorID string           `json:"evaluator_id"`
		Evaluation  model.Evaluation `json:"evaluation"`
	}
	if err := json.Unmarshal(dl.Body.Bytes(), &exp); err != nil {
		t.Fatalf("download is not JSON: %v", err)
	}
	if exp.EvaluatorID != "0" || exp.Evaluation.EvaluationID != rec.EvaluationID {
		t.Errorf("unexpected export %+v", exp)
	}

	if b.get("/evaluations/nope/download").Code != http.StatusNotFound {
		t.Error("expected 404 for unknown evaluation")
	}

	var stats struct{ Completed, Overlap, Unique int }
	statsRR := b.get("/api/stats")
	if err := json.Unmarshal(statsRR.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Completed != 1 || stats.Overlap != 1 || stats.Unique != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestHybrid_NavigationAndCompletion(t *testing.T) {
	s, _ := newTestServer(t, model.ModeHybrid)
	b := newBrowser(s)
	login(t, b)

	expectRedirect(t, b.post("/evaluate/previous", nil), "/evaluate")
	expectBody(t, b.get("/evaluate"), http.StatusOK, `<span id="current-sample">1</span>`)

	expectBody(t, b.post("/evaluate/goto", url.Values{"sample_number": {"5"}}), http.StatusBadRequest,
		"Please enter a valid sample number (1-3)")
	expectBody(t, b.post("/evaluate/goto", url.Values{"sample_number": {"abc"}}), http.StatusBadRequest,
		"Please enter a valid sample number (1-3)")

	expectRedirect(t, b.post("/evaluate/goto", url.Values{"sample_number": {"3"}}), "/evaluate")
	expectBody(t, b.get("/evaluate"), http.StatusOK, "reference three", "Unique Sample")

	var state hybridStateResponse
	if err := json.Unmarshal(b.get("/api/state").Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.Index != 2 || state.Total != 3 || state.Completed || !state.Authenticated {
		t.Errorf("unexpected state %+v", state)
	}

	expectRedirect(t, b.post("/evaluate/next", nil), "/evaluate")
	expectBody(t, b.get("/evaluate"), http.StatusOK, "All Evaluations Completed", "You have completed all 3 assigned samples.")

	// Completion disables further interaction
	expectRedirect(t, b.post("/evaluate/previous", nil), "/evaluate")
	expectRedirect(t, b.post("/evaluate/submit", hybridForm("tie")), "/evaluate")
	expectBody(t, b.get("/evaluate"), http.StatusOK, "All Evaluations Completed")
}

func TestHybrid_RestoreFromAccessCookie(t *testing.T) {
	s, _ := newTestServer(t, model.ModeHybrid)

	b := newBrowser(s)
	b.cookies[auth.CookieName] = &http.Cookie{Name: auth.CookieName, Value: auth.Encode("PILOT")}
	b.get("/")
	expectRedirect(t, b.post("/login", url.Values{"evaluator_id": {"0"}}), "/evaluate")

	bad := newBrowser(s)
	bad.cookies[auth.CookieName] = &http.Cookie{Name: auth.CookieName, Value: "!!!"}
	bad.get("/")
	if _, ok := bad.cookies[auth.CookieName]; ok {
		t.Error("undecodable access cookie should be cleared")
	}
}

func randomForm() url.Values {
	form := url.Values{}
	for _, id := range []string{
		"novelty_reasoning_alignment", "novelty_decision_alignment", "claim_substantiation",
		"analytical_quality", "constructiveness", "overall_preference",
	} {
		form.Set(id, "b_better")
	}
	return form
}

func TestRandom_Flow(t *testing.T) {
	s, st := newTestServer(t, model.ModeRandom)
	b := newBrowser(s)

	expectBody(t, b.get("/"), http.StatusOK, `action="/start"`)
	expectBody(t, b.post("/start", url.Values{"evaluator_id": {""}}), http.StatusBadRequest, "Please enter your evaluator ID")
	expectRedirect(t, b.post("/start", url.Values{"evaluator_id": {"alice"}}), "/evaluate")
	expectBody(t, b.get("/evaluate"), http.StatusOK, "human text", `name="comment"`)

	partial := randomForm()
	partial.Del("constructiveness")
	partial.Del("overall_preference")
	expectBody(t, b.post("/evaluate/submit", partial), http.StatusUnprocessableEntity,
		"Missing: Constructiveness, Overall Preference")

	form := randomForm()
	form.Set("comment", "B is sharper")
	expectRedirect(t, b.post("/evaluate/submit", form), "/evaluate")

	ledger := store.NewLedger[model.Judgment](st)
	records, _ := ledger.List(context.Background(), store.RandomKey)
	if len(records) != 1 {
		t.Fatalf("expected 1 judgment, got %d", len(records))
	}
	j := records[0]
	if j.EvaluatorID != "alice" || j.Comment != "B is sharper" || len(j.Responses) != 6 {
		t.Errorf("unexpected judgment %+v", j)
	}

	expectBody(t, b.get("/evaluate"), http.StatusOK, downloadURL(j.EvaluationID))

	dl := b.get(downloadURL(j.EvaluationID))
	if dl.Code != http.StatusOK {
		t.Fatalf("download failed: %d", dl.Code)
	}
	if got := dl.Header().Get("Content-Disposition"); !strings.Contains(got, "evaluation_alice_"+j.EvaluationID+".json") {
		t.Errorf("unexpected Content-Disposition %s", got)
	}

	// Another evaluator cannot fetch alice's record
	other := newBrowser(s)
	other.post("/start", url.Values{"evaluator_id": {"bob"}})
	if other.get(downloadURL(j.EvaluationID)).Code != http.StatusNotFound {
		t.Error("expected 404 for another evaluator's record")
	}

	expectRedirect(t, b.post("/evaluate/next", nil), "/evaluate")
	expectBody(t, b.get("/evaluate"), http.StatusOK, `id="submit-btn">`)

	var stats struct {
		Total       int            `json:"total"`
		ByEvaluator map[string]int `json:"by_evaluator"`
	}
	if err := json.Unmarshal(b.get("/api/stats").Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 || stats.ByEvaluator["alice"] != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// failingStore rejects writes until healed
type failingStore struct {
	*store.MemoryStore
	failing atomic.Bool
}

func newFailingStore() *failingStore {
	fs := &failingStore{MemoryStore: store.NewMemoryStore()}
	fs.failing.Store(true)
	return fs
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failing.Load() {
		return errors.New("write refused")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func TestHybrid_SubmitRetriesAfterSaveFailure(t *testing.T) {
	st := newFailingStore()
	b := newBrowser(newTestServerWithStore(t, model.ModeHybrid, st))
	login(t, b)

	expectBody(t, b.post("/evaluate/submit", hybridForm("a_wins")), http.StatusInternalServerError,
		"Failed to save evaluation", `id="submit-btn">`)

	st.failing.Store(false)
	expectRedirect(t, b.post("/evaluate/submit", hybridForm("a_wins")), "/evaluate")

	n, err := store.NewLedger[model.Evaluation](st).Count(context.Background(), store.HybridKey("0"))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 stored evaluation, got %d (%v)", n, err)
	}
	expectBody(t, b.post("/evaluate/submit", hybridForm("a_wins")), http.StatusConflict, "already submitted")
}

func TestRandom_SubmitRetriesAfterSaveFailure(t *testing.T) {
	st := newFailingStore()
	b := newBrowser(newTestServerWithStore(t, model.ModeRandom, st))
	expectRedirect(t, b.post("/start", url.Values{"evaluator_id": {"alice"}}), "/evaluate")

	expectBody(t, b.post("/evaluate/submit", randomForm()), http.StatusInternalServerError, "Failed to save evaluation")

	st.failing.Store(false)
	expectRedirect(t, b.post("/evaluate/submit", randomForm()), "/evaluate")

	n, err := store.NewLedger[model.Judgment](st).Count(context.Background(), store.RandomKey)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 stored judgment, got %d (%v)", n, err)
	}
}

func TestStaticDataAndCORS(t *testing.T) {
	s, _ := newTestServer(t, model.ModeHybrid)

	req := httptest.NewRequest(http.MethodGet, "/data/"+source.AuthConfigFile, nil)
	req.Header.Set("Origin", "http://example.org")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "PILOT") {
		t.Fatalf("static data not served: %d %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected permissive CORS, got %q", got)
	}
}

func TestNew_Errors(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Data.Base = t.TempDir()
	loader := source.NewLoader(cfg.Data, quietLogger)

	cfg.Server.Mode = "bogus"
	if _, err := New(context.Background(), cfg.Server, loader, store.NewMemoryStore(), quietLogger); err == nil {
		t.Error("expected error for unknown mode")
	}

	cfg.Server.Mode = model.ModeRandom
	if _, err := New(context.Background(), cfg.Server, loader, store.NewMemoryStore(), quietLogger); err == nil {
		t.Error("expected error when papers.json is missing")
	}

	// Hybrid mode never fails on missing config files
	cfg.Server.Mode = model.ModeHybrid
	if _, err := New(context.Background(), cfg.Server, loader, store.NewMemoryStore(), quietLogger); err != nil {
		t.Errorf("hybrid server should start with fallbacks, got %v", err)
	}
}
