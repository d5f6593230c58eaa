package visualization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Swabber-io/syscomp/internal/logging"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/ratelimit"
	"github.com/Swabber-io/syscomp/internal/simulation"
)

// maxStepsPerRequest bounds /api/step?n=.
const maxStepsPerRequest = 1000

// Server serves a live simulation session as HTML and JSON.
type Server struct {
	session    *simulation.Session
	cache      *cache.Cache
	budget     ratelimit.Budget
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a server over session. Rendered frames are reused for
// up to ttl; a new tick or reset always renders afresh.
func NewServer(session *simulation.Session, ttl time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return &Server{
		session: session,
		// No janitor: expired entries are dropped lazily on access.
		cache:  cache.New(ttl, 0),
		budget: ratelimit.DefaultBudget(),
		logger: logger,
	}
}

// SetBudget replaces the rate limits applied to every route.
// A nil budget disables limiting. Call before ListenAndServe.
func (s *Server) SetBudget(b ratelimit.Budget) {
	s.budget = b
}

// checkBudget writes 429 and returns false when action is over budget.
func (s *Server) checkBudget(w http.ResponseWriter, action string, cost int) bool {
	err := s.budget.Check(action, cost)
	if err == nil {
		return true
	}
	var le *ratelimit.LimitError
	if errors.As(err, &le) && le.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(le.RetryAfter.Seconds())+1))
	}
	http.Error(w, err.Error(), http.StatusTooManyRequests)
	return false
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/frame", s.handleFrame)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/agent/{id}", s.handleAgent)
	mux.HandleFunc("POST /api/step", s.handleStep)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	return mux
}

// ListenAndServe starts the HTTP server on addr ("" picks a free local port)
// and blocks until the context is cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = "localhost:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	s.logger.Info("visualization server listening", "addr", s.Addr())

	done := make(chan struct{})
	defer close(done)

	// Graceful shutdown when context is cancelled.
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type rendered struct {
	graph Graph
	frame simulation.Frame
	enr   *EnrichmentData
}

// current returns the rendered view of the session's latest tick, from the
// cache when possible.
func (s *Server) current() rendered {
	runID, tick := s.session.RunID(), s.session.Tick()
	key := fmt.Sprintf("%s:%d", runID, tick)
	if v, ok := s.cache.Get(key); ok {
		return v.(rendered)
	}

	f, stats, pr := s.session.View()
	enr := &EnrichmentData{PageRank: pr, Stats: &stats}
	r := rendered{graph: RenderJSON(f, enr), frame: f, enr: enr}
	s.cache.Set(fmt.Sprintf("%s:%d", f.RunID, f.Tick), r, cache.DefaultExpiration)
	return r
}

// handleIndex serves the live HTML page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.checkBudget(w, ratelimit.ActionRender, 1) {
		return
	}
	cur := s.current()
	html, err := RenderHTML(cur.frame, cur.enr, true)
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

// handleFrame serves the current frame as JSON, or DOT with ?format=dot.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if !s.checkBudget(w, ratelimit.ActionRender, 1) {
		return
	}
	cur := s.current()
	if r.URL.Query().Get("format") == string(FormatDOT) {
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		w.Write([]byte(RenderDOT(cur.frame)))
		return
	}
	writeJSON(w, http.StatusOK, cur.graph)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.checkBudget(w, ratelimit.ActionQuery, 1) {
		return
	}
	writeJSON(w, http.StatusOK, s.session.History())
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "agent id must be an integer", http.StatusBadRequest)
		return
	}
	if !s.checkBudget(w, ratelimit.ActionQuery, 1) {
		return
	}
	view, err := s.session.Agent(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	n := 1
	if v := r.URL.Query().Get("n"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n < 1 || n > maxStepsPerRequest {
			http.Error(w, fmt.Sprintf("n must be an integer in [1, %d]", maxStepsPerRequest), http.StatusBadRequest)
			return
		}
	}
	if !s.checkBudget(w, ratelimit.ActionStep, n) {
		return
	}
	f, err := s.session.Step(n)
	if err != nil {
		s.logger.Error("step failed", "tick", f.Tick, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, simulation.ErrStopped) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	s.logger.Debug("stepped", "ticks", n, "tick", f.Tick)
	writeJSON(w, http.StatusOK, f.Metrics)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var seed *int64
	if v := r.URL.Query().Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "seed must be an integer", http.StatusBadRequest)
			return
		}
		seed = &n
	}
	if !s.checkBudget(w, ratelimit.ActionReset, 1) {
		return
	}
	if err := s.session.Reset(seed); err != nil {
		status := http.StatusInternalServerError
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	s.logger.Info("session reset", "run_id", s.session.RunID(), "seed", s.session.Config().Seed)
	writeJSON(w, http.StatusOK, map[string]any{"run_id": s.session.RunID(), "tick": 0})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
