package stats

import (
	"sync/atomic"
)

// RequestStats holds transport-level request accounting for a run.
// This is separate from the driver's outcome classification: every
// request lands here, including ones that never produced an HTTP
// status (connection refused, timeout).
type RequestStats struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64

	// Response time histogram (microseconds)
	ResponseTime *SafeHistogram
}

func NewRequestStats() *RequestStats {
	return &RequestStats{
		ResponseTime: NewSafeHistogram(),
	}
}

func (s *RequestStats) Add(success bool, bytes int64, responseTimeUs int64) {
	atomic.AddUint64(&s.Requests, 1)
	if success {
		atomic.AddUint64(&s.Success, 1)
	} else {
		atomic.AddUint64(&s.Fail, 1)
	}
	if bytes > 0 {
		atomic.AddUint64(&s.Bytes, uint64(bytes))
	}
	s.ResponseTime.RecordValue(responseTimeUs)
}

// AvgResponseMs returns the mean response time in milliseconds,
// 0 if no requests were recorded.
func (s *RequestStats) AvgResponseMs() float64 {
	if s.ResponseTime.TotalCount() == 0 {
		return 0
	}
	return s.ResponseTime.Mean() / 1000.0
}

func (s *RequestStats) GetP50() float64 {
	return float64(s.ResponseTime.ValueAtQuantile(50)) / 1000.0 // ms
}

func (s *RequestStats) GetP90() float64 {
	return float64(s.ResponseTime.ValueAtQuantile(90)) / 1000.0 // ms
}

func (s *RequestStats) GetP99() float64 {
	return float64(s.ResponseTime.ValueAtQuantile(99)) / 1000.0 // ms
}

func (s *RequestStats) Reset() {
	atomic.StoreUint64(&s.Requests, 0)
	atomic.StoreUint64(&s.Success, 0)
	atomic.StoreUint64(&s.Fail, 0)
	atomic.StoreUint64(&s.Bytes, 0)
	s.ResponseTime.Reset()
}
