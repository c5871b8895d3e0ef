package runner

import (
	"time"
)

type Config struct {
	Host       string // base URL of the scheduler, e.g. http://35.90.44.88:8080
	NumUsers   int
	SpawnRate  float64 // users started per second
	DurationS  int     // run duration in seconds
	TimeoutSec int
	RunName    string

	// Per-client pacing between submissions. Defaults 100-300ms,
	// simulating realistic per-user request spacing.
	WaitMin time.Duration
	WaitMax time.Duration
}

func (c *Config) ApplyDefaults() {
	if c.WaitMin <= 0 {
		c.WaitMin = 100 * time.Millisecond
	}
	if c.WaitMax < c.WaitMin {
		c.WaitMax = 300 * time.Millisecond
	}
	if c.SpawnRate <= 0 {
		c.SpawnRate = 1
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = 30
	}
}

// JobRequest is the wire shape posted to /api/jobs. Payload is itself
// a JSON-encoded string, matching what the scheduler expects.
type JobRequest struct {
	Type        string `json:"type"`
	Payload     string `json:"payload"`
	ScheduledAt string `json:"scheduledAt"`
}

type jobPayload struct {
	OrderID   string  `json:"orderId"`
	Amount    float64 `json:"amount"`
	Timestamp string  `json:"timestamp"`
	TestRun   string  `json:"testRun"`
}
