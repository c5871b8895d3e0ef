package dummy

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ServerConfig configures the local stand-in for the job scheduler.
// It mimics the real API's contract closely enough to exercise every
// branch of the driver's classification: 202 with a jobId body, 429
// after the per-client budget, injected 5xx, 400 on bad input.
type ServerConfig struct {
	Port      int
	RateLimit int     // requests per minute per client, default 100
	ErrorRate float64 // probability of an injected 503, default 0
}

type jobRequest struct {
	Type        string `json:"type"`
	Payload     string `json:"payload"`
	ScheduledAt string `json:"scheduledAt"`
}

type jobResponse struct {
	JobID     string    `json:"jobId"`
	ClientID  string    `json:"clientId"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Server struct {
	cfg ServerConfig
	log *zap.Logger

	mu      sync.Mutex
	buckets map[string]*window

	registry    *prometheus.Registry
	accepted    prometheus.Counter
	rateLimited prometheus.Counter
	rejected    prometheus.Counter
}

// window is a fixed one-minute rate-limit window per client.
type window struct {
	start time.Time
	count int
}

func NewServer(cfg ServerConfig, log *zap.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 100
	}
	if log == nil {
		log = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	s := &Server{
		cfg:      cfg,
		log:      log,
		buckets:  make(map[string]*window),
		registry: reg,
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobs_accepted_total",
			Help: "Jobs accepted with 202.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobs_rate_limited_total",
			Help: "Submissions rejected with 429.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobs_rejected_total",
			Help: "Submissions rejected with 4xx/5xx other than 429.",
		}),
	}
	reg.MustRegister(s.accepted, s.rateLimited, s.rejected)
	return s
}

// Handler returns the stub API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", s.handleCreateJob)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	clientID := r.Header.Get("X-Client-Id")
	if clientID == "" {
		s.rejected.Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-Client-Id header is required"})
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" || req.Payload == "" {
		s.rejected.Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid input"})
		return
	}

	remaining, allowed := s.allow(clientID)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.cfg.RateLimit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !allowed {
		s.rateLimited.Inc()
		s.log.Debug("rate limit exceeded", zap.String("clientId", clientID))
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	if s.cfg.ErrorRate > 0 && rand.Float64() < s.cfg.ErrorRate {
		s.rejected.Inc()
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "injected failure"})
		return
	}

	resp := jobResponse{
		JobID:     uuid.New().String(),
		ClientID:  clientID,
		Type:      req.Type,
		Status:    "PENDING",
		CreatedAt: time.Now(),
	}
	s.accepted.Inc()
	s.log.Debug("job accepted",
		zap.String("jobId", resp.JobID),
		zap.String("clientId", clientID),
		zap.String("type", req.Type))
	writeJSON(w, http.StatusAccepted, resp)
}

// allow consumes one token from the client's one-minute window and
// reports how many remain.
func (s *Server) allow(clientID string) (remaining int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b := s.buckets[clientID]
	if b == nil || now.Sub(b.start) >= time.Minute {
		b = &window{start: now}
		s.buckets[clientID] = b
	}
	if b.count >= s.cfg.RateLimit {
		return 0, false
	}
	b.count++
	return s.cfg.RateLimit - b.count, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Start serves the stub in the background.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("dummy scheduler running",
		zap.String("addr", addr),
		zap.Int("rateLimit", s.cfg.RateLimit),
		zap.Float64("errorRate", s.cfg.ErrorRate))
	fmt.Printf("Dummy scheduler on http://localhost%s\n", addr)
	fmt.Println("   Endpoints: POST /api/jobs, GET /healthz, GET /metrics")

	server := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("server failed", zap.Error(err))
		}
	}()
}
