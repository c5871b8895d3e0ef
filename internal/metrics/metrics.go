package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// RunMetrics is the shared aggregate for one load-test run. All the
// simulated clients increment it concurrently, so counters are atomic
// and the job-id list is mutex guarded. PartitionCount and WorkerCount
// label the externally provisioned environment; they are recorded in
// output only and never change driver behavior.
type RunMetrics struct {
	totalSubmitted uint64
	successful     uint64
	failed         uint64
	rateLimited    uint64

	mu        sync.Mutex
	startTime time.Time
	jobIDs    []string

	PartitionCount int
	WorkerCount    int
}

func NewRunMetrics(partitions, workers int) *RunMetrics {
	return &RunMetrics{
		PartitionCount: partitions,
		WorkerCount:    workers,
	}
}

// Reset zeroes the counters, clears collected job ids and marks a new
// run start. Configuration (partitions/workers) is preserved.
func (m *RunMetrics) Reset() {
	atomic.StoreUint64(&m.totalSubmitted, 0)
	atomic.StoreUint64(&m.successful, 0)
	atomic.StoreUint64(&m.failed, 0)
	atomic.StoreUint64(&m.rateLimited, 0)

	m.mu.Lock()
	m.startTime = time.Now()
	m.jobIDs = nil
	m.mu.Unlock()
}

// MarkStarted sets the run start time if no client has set it yet.
// The first client to start marks the run start.
func (m *RunMetrics) MarkStarted() {
	m.mu.Lock()
	if m.startTime.IsZero() {
		m.startTime = time.Now()
	}
	m.mu.Unlock()
}

func (m *RunMetrics) StartTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startTime
}

func (m *RunMetrics) TotalSubmitted() uint64 { return atomic.LoadUint64(&m.totalSubmitted) }
func (m *RunMetrics) Successful() uint64     { return atomic.LoadUint64(&m.successful) }
func (m *RunMetrics) Failed() uint64         { return atomic.LoadUint64(&m.failed) }
func (m *RunMetrics) RateLimited() uint64    { return atomic.LoadUint64(&m.rateLimited) }

// JobIDs returns a copy of the collected job ids.
func (m *RunMetrics) JobIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.jobIDs))
	copy(ids, m.jobIDs)
	return ids
}

func (m *RunMetrics) appendJobID(id string) {
	m.mu.Lock()
	m.jobIDs = append(m.jobIDs, id)
	m.mu.Unlock()
}

// Duration returns the elapsed time since run start, 0 if unstarted.
func (m *RunMetrics) Duration() time.Duration {
	start := m.StartTime()
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

// Throughput returns successful submissions per elapsed second.
// 0 when the run never started or no time has elapsed.
func (m *RunMetrics) Throughput() float64 {
	elapsed := m.Duration().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.Successful()) / elapsed
}

// ErrorRate returns failed/(successful+failed) as a percentage.
// Rate-limited responses are excluded from both terms: a 429 is the
// target's expected backpressure signal, not an error.
func (m *RunMetrics) ErrorRate() float64 {
	ok := m.Successful()
	bad := m.Failed()
	total := ok + bad
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total) * 100
}

// Outcome is the driver-level verdict for one submission attempt.
type Outcome struct {
	Status  int
	Success bool
	Message string // failure description, empty on success
	JobID   string // extracted from a 202 body when present
}

// Classify buckets one HTTP response into the run counters. The total
// counter increments exactly once per call, before any branch, so
// totalSubmitted == successful+failed+rateLimited holds after every
// classification.
func (m *RunMetrics) Classify(status int, body []byte) Outcome {
	atomic.AddUint64(&m.totalSubmitted, 1)

	out := Outcome{Status: status}
	switch {
	case status == 202:
		atomic.AddUint64(&m.successful, 1)
		out.Success = true
		if id, ok := TryParseJobID(body); ok {
			out.JobID = id
			m.appendJobID(id)
		}
	case status == 200 || status == 201:
		atomic.AddUint64(&m.successful, 1)
		out.Success = true
	case status == 429:
		// Expected backpressure, reported as a non-failing outcome.
		atomic.AddUint64(&m.rateLimited, 1)
		out.Success = true
	case status >= 500:
		atomic.AddUint64(&m.failed, 1)
		out.Message = fmt.Sprintf("Server error %d", status)
	case status >= 400:
		atomic.AddUint64(&m.failed, 1)
		out.Message = fmt.Sprintf("Client error %d", status)
	default:
		atomic.AddUint64(&m.failed, 1)
		out.Message = fmt.Sprintf("Unexpected status %d", status)
	}
	return out
}
