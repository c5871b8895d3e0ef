package runner

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"jobload/internal/metrics"
	"jobload/internal/stats"
)

const jobTypePaymentProcess = "PAYMENT_PROCESS"

// StatsSnapshot is sent over the update channel for live consumers
type StatsSnapshot struct {
	Submitted   uint64
	Successful  uint64
	Failed      uint64
	RateLimited uint64
	Inflight    int64

	// Pre-calculated response times for the UI (cheap copy)
	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs int64
	AvgMs float64
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot

// Result records one submission attempt for the per-request report.
type Result struct {
	TimeStamp    time.Time     `json:"timestamp"`
	ClientID     string        `json:"clientId"`
	Status       int           `json:"status"`
	Success      bool          `json:"success"`
	ResponseTime time.Duration `json:"responseTime"`
	JobID        string        `json:"jobId,omitempty"`
	Message      string        `json:"message,omitempty"`
}

type Runner struct {
	Cfg     Config
	Metrics *metrics.RunMetrics
	Stats   *stats.RequestStats
	Client  *http.Client
	Results []Result
	mu      sync.Mutex

	inflight int64

	// Event Channel
	Updates StatsUpdateChan
}

func NewRunner(cfg Config, m *metrics.RunMetrics, updates StatsUpdateChan) *Runner {
	cfg.ApplyDefaults()

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	client := &http.Client{
		Timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
		Transport: t,
	}

	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}

	return &Runner{
		Cfg:     cfg,
		Metrics: m,
		Stats:   stats.NewRequestStats(),
		Client:  client,
		Updates: updates,
	}
}

// StartTickLoop starts a goroutine that pushes stats updates
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

func (r *Runner) sendUpdate() {
	s := StatsSnapshot{
		Submitted:   r.Metrics.TotalSubmitted(),
		Successful:  r.Metrics.Successful(),
		Failed:      r.Metrics.Failed(),
		RateLimited: r.Metrics.RateLimited(),
		Inflight:    atomic.LoadInt64(&r.inflight),
		P50Ms:       r.Stats.GetP50(),
		P90Ms:       r.Stats.GetP90(),
		P99Ms:       r.Stats.GetP99(),
		MaxMs:       r.Stats.ResponseTime.Max() / 1000,
		AvgMs:       r.Stats.AvgResponseMs(),
	}

	// Non-blocking send
	select {
	case r.Updates <- s:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Run spawns the simulated clients at the configured spawn rate and
// blocks until the run duration elapses and every client returns.
func (r *Runner) Run(ctx context.Context) {
	r.StartTickLoop(ctx, 200*time.Millisecond)

	var wg sync.WaitGroup
	start := time.Now()
	totalDur := time.Duration(r.Cfg.DurationS) * time.Second
	spawnGap := time.Duration(float64(time.Second) / r.Cfg.SpawnRate)

	for i := 0; i < r.Cfg.NumUsers; i++ {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		default:
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			r.runUser(ctx, idx, start, totalDur)
		}(i)

		if i < r.Cfg.NumUsers-1 {
			time.Sleep(spawnGap)
		}
	}
	wg.Wait()
}

func (r *Runner) runUser(ctx context.Context, idx int, start time.Time, totalDur time.Duration) {
	r.Metrics.MarkStarted()

	// Client ids hash into 10 buckets; collisions across users are
	// fine, the scheduler rate-limits per id.
	clientID := fmt.Sprintf("partition-test-user-%d", idx%10)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if time.Since(start) > totalDur {
				return
			}
			r.submitJob(clientID)
			time.Sleep(r.thinkTime())
		}
	}
}

// thinkTime draws a pause uniformly from [WaitMin, WaitMax].
func (r *Runner) thinkTime() time.Duration {
	span := r.Cfg.WaitMax - r.Cfg.WaitMin
	if span <= 0 {
		return r.Cfg.WaitMin
	}
	return r.Cfg.WaitMin + time.Duration(rand.Int63n(int64(span)))
}

// BuildJobRequest assembles one PAYMENT_PROCESS submission. The order
// ordinal comes from the running submission count, and the job is
// scheduled 10 seconds out to give the target time to pick it up.
func BuildJobRequest(seq uint64, runName string, now time.Time) (JobRequest, error) {
	inner, err := json.Marshal(jobPayload{
		OrderID:   fmt.Sprintf("order-%d", seq),
		Amount:    100.0,
		Timestamp: now.Format(time.RFC3339Nano),
		TestRun:   runName,
	})
	if err != nil {
		return JobRequest{}, err
	}
	return JobRequest{
		Type:        jobTypePaymentProcess,
		Payload:     string(inner),
		ScheduledAt: now.Add(10 * time.Second).Format(time.RFC3339Nano),
	}, nil
}

func (r *Runner) submitJob(clientID string) {
	atomic.AddInt64(&r.inflight, 1)
	defer atomic.AddInt64(&r.inflight, -1)

	jobReq, err := BuildJobRequest(r.Metrics.TotalSubmitted(), r.Cfg.RunName, time.Now())
	if err != nil {
		return
	}
	body, err := json.Marshal(jobReq)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, r.Cfg.Host+"/api/jobs", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Id", clientID)

	start := time.Now()
	resp, err := r.Client.Do(req)
	elapsed := time.Since(start)

	res := Result{
		TimeStamp:    start,
		ClientID:     clientID,
		ResponseTime: elapsed,
	}

	if err != nil {
		// Transport-level failure: no status to classify, counted
		// only in the request stats. Single attempt, no retry.
		r.Stats.Add(false, 0, elapsed.Microseconds())
		res.Message = err.Error()
		r.appendResult(res)
		return
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	out := r.Metrics.Classify(resp.StatusCode, respBody)
	r.Stats.Add(out.Success, int64(len(respBody)), elapsed.Microseconds())

	res.Status = out.Status
	res.Success = out.Success
	res.JobID = out.JobID
	res.Message = out.Message
	r.appendResult(res)
}

func (r *Runner) appendResult(res Result) {
	r.mu.Lock()
	r.Results = append(r.Results, res)
	r.mu.Unlock()
}

// ResetRun clears the transport stats and per-request results so a
// sequential run starts from a clean slate. RunMetrics has its own
// Reset, called by the lifecycle controller.
func (r *Runner) ResetRun() {
	r.Stats.Reset()
	r.mu.Lock()
	r.Results = nil
	r.mu.Unlock()
}

// Snapshot returns a copy of the per-request results so far.
func (r *Runner) Snapshot() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.Results))
	copy(out, r.Results)
	return out
}

func (r *Runner) GetInflight() int64 {
	return atomic.LoadInt64(&r.inflight)
}
