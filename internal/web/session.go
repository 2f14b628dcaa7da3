package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/pairwise/internal/survey"
)

// SessionCookie identifies the server-side session of a browser tab
const SessionCookie = "pairwise_session"

// state is everything the server remembers about one browser session
type state struct {
	hybrid *survey.HybridSession
	random *survey.RandomSession

	mu          sync.Mutex
	evaluatorID string // random mode
	flash       Notice
}

// setFlash stores a notice for the next page render
func (st *state) setFlash(n Notice) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.flash = n
}

// takeFlash returns and clears the pending notice
func (st *state) takeFlash() Notice {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := st.flash
	st.flash = Notice{}
	return n
}

func (st *state) setEvaluator(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.evaluatorID = id
}

func (st *state) evaluator() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.evaluatorID
}

// sessions is the server-side session table, expiring idle sessions after ttl
type sessions struct {
	cache  *gocache.Cache
	ttl    time.Duration
	secure bool
	create func() *state
}

func newSessions(ttl time.Duration, secure bool, create func() *state) *sessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	// No janitor goroutine; expired sessions are purged when new ones are created
	return &sessions{
		cache:  gocache.New(ttl, 0),
		ttl:    ttl,
		secure: secure,
		create: create,
	}
}

// get returns the caller's session, creating one and setting the cookie when needed
func (s *sessions) get(c *gin.Context) *state {
	if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
		if v, ok := s.cache.Get(id); ok {
			st := v.(*state)
			s.cache.Set(id, st, s.ttl)
			return st
		}
	}

	s.cache.DeleteExpired()
	id := uuid.NewString()
	st := s.create()
	s.cache.Set(id, st, s.ttl)
	s.setCookie(c, SessionCookie, id)
	return st
}

// lookup returns the caller's session without creating one
func (s *sessions) lookup(c *gin.Context) (*state, bool) {
	id, err := c.Cookie(SessionCookie)
	if err != nil || id == "" {
		return nil, false
	}
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*state), true
}

// count returns the number of live sessions
func (s *sessions) count() int {
	return s.cache.ItemCount()
}

// setCookie writes a session-scoped cookie (no Max-Age: it dies with the browser session)
func (s *sessions) setCookie(c *gin.Context, name, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, 0, "/", "", s.secure, true)
}

func (s *sessions) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", s.secure, true)
}
