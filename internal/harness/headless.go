package harness

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Start runs the whole lifecycle headless: OnStart, drive the clients,
// a 200ms progress line, drain in-flight requests, OnStop.
func (h *Harness) Start(ctx context.Context) error {
	h.OnStart()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		h.Runner.Run(ctx)
		close(done)
	}()

	startTime := time.Now()
	totalDuration := time.Duration(h.Runner.Cfg.DurationS) * time.Second

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	finished := false
	for !finished {
		select {
		case <-ctx.Done():
			finished = true
		case <-done:
			finished = true
		case <-h.Runner.Updates:
			// Drain updates
		case <-ticker.C:
			elapsed := time.Since(startTime)
			m := h.Runner.Metrics
			inflight := h.Runner.GetInflight()

			pct := elapsed.Seconds() / totalDuration.Seconds()
			if pct > 1.0 {
				pct = 1.0
			}

			fmt.Printf("\r%s %3.0f%% | %s/%s | Inf: %3d | Sent: %d | OK: %d | 429: %d | Err: %d",
				progressBar(pct, 20), pct*100,
				elapsed.Round(time.Second), totalDuration,
				inflight,
				m.TotalSubmitted(),
				m.Successful(),
				m.RateLimited(),
				m.Failed(),
			)
		}
	}

	// Let in-flight requests finish before summarizing.
	<-done

	return h.OnStop()
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}
