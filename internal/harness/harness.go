package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobload/internal/report"
	"jobload/internal/runner"
	"jobload/internal/storage"
)

// Options controls what happens around the run itself.
type Options struct {
	CSVPath     string // append-only results log
	OutPrefix   string // optional per-request report prefix, "" disables
	HistoryPath string // bbolt history store, "" disables
}

// Harness brackets one load-test run with explicit OnStart/OnStop
// lifecycle methods. No listener registration: the run controller
// calls the hooks directly.
type Harness struct {
	Runner *runner.Runner
	Opts   Options
	log    *zap.Logger
}

func New(r *runner.Runner, opts Options, log *zap.Logger) *Harness {
	if log == nil {
		log = zap.NewNop()
	}
	return &Harness{Runner: r, Opts: opts, log: log}
}

// OnStart prints the configuration banner and resets the run metrics.
func (h *Harness) OnStart() {
	cfg := h.Runner.Cfg
	m := h.Runner.Metrics

	fmt.Printf("\n%s\n", rule())
	fmt.Printf("  PARTITION SCALING TEST\n")
	fmt.Printf("%s\n", rule())
	fmt.Printf("  Configuration:\n")
	fmt.Printf("    Partition Count:  %d\n", m.PartitionCount)
	fmt.Printf("    Worker Count:     %d\n", m.WorkerCount)
	fmt.Printf("    Target Host:      %s\n", cfg.Host)
	fmt.Printf("\n")
	fmt.Printf("  Test Parameters:\n")
	fmt.Printf("    Users:            %d\n", cfg.NumUsers)
	fmt.Printf("    Spawn Rate:       %.1f/s\n", cfg.SpawnRate)
	fmt.Printf("    Duration:         %ds\n", cfg.DurationS)
	fmt.Printf("%s\n\n", rule())

	m.Reset()
	h.Runner.ResetRun()
}

// OnStop computes the run aggregates, prints the results summary,
// appends one row to the results CSV and records the run in history.
// A CSV append failure is fatal to teardown and returned to the
// caller; a history failure is logged and swallowed.
func (h *Harness) OnStop() error {
	m := h.Runner.Metrics
	s := h.Runner.Stats

	if m.StartTime().IsZero() {
		fmt.Println("No test data collected")
		return nil
	}

	duration := m.Duration()
	throughput := m.Throughput()
	errorRate := m.ErrorRate()

	row := report.ResultRow{
		Timestamp:      time.Now(),
		PartitionCount: m.PartitionCount,
		WorkerCount:    m.WorkerCount,
		TotalSubmitted: m.TotalSubmitted(),
		Successful:     m.Successful(),
		Failed:         m.Failed(),
		RateLimited:    m.RateLimited(),
		ErrorRatePct:   errorRate,
		DurationSec:    duration.Seconds(),
		Throughput:     throughput,
		AvgResponseMs:  s.AvgResponseMs(),
	}

	h.printSummary(row)

	if h.Opts.OutPrefix != "" {
		if err := report.WriteRequestsCSV(h.Runner.Snapshot(), h.Opts.OutPrefix+".csv"); err != nil {
			h.log.Warn("request report failed", zap.Error(err))
		}
		if err := report.WriteSummaryJSON(row, s, h.Opts.OutPrefix+"_summary.json"); err != nil {
			h.log.Warn("summary report failed", zap.Error(err))
		}
	}

	h.saveHistory(row)

	if h.Opts.CSVPath != "" {
		if err := report.AppendRow(h.Opts.CSVPath, row); err != nil {
			return fmt.Errorf("append results csv: %w", err)
		}
		fmt.Printf("Results saved to %s\n\n", h.Opts.CSVPath)
	}
	return nil
}

func (h *Harness) saveHistory(row report.ResultRow) {
	if h.Opts.HistoryPath == "" {
		return
	}
	store, err := storage.NewStore(h.Opts.HistoryPath)
	if err != nil {
		h.log.Warn("history store unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	rec := storage.RunRecord{
		ID:        uuid.New().String(),
		Timestamp: row.Timestamp,
		RunName:   h.Runner.Cfg.RunName,
		Host:      h.Runner.Cfg.Host,
		Users:     h.Runner.Cfg.NumUsers,
		Row:       row,
	}
	if err := store.Save(rec); err != nil {
		h.log.Warn("history save failed", zap.Error(err))
	}
}

func (h *Harness) printSummary(row report.ResultRow) {
	s := h.Runner.Stats

	fmt.Printf("\n\n%s\n", rule())
	fmt.Printf("  TEST RESULTS - %d PARTITIONS\n", row.PartitionCount)
	fmt.Printf("%s\n", rule())
	fmt.Printf("  Jobs Submitted:       %d\n", row.TotalSubmitted)
	fmt.Printf("  Successful:           %d\n", row.Successful)
	fmt.Printf("  Failed:               %d\n", row.Failed)
	fmt.Printf("  Rate Limited:         %d\n", row.RateLimited)
	fmt.Printf("  Error Rate:           %.2f%%\n", row.ErrorRatePct)
	fmt.Printf("\n")
	fmt.Printf("  Duration:             %.2f seconds\n", row.DurationSec)
	fmt.Printf("  Throughput:           %.2f jobs/sec\n", row.Throughput)
	fmt.Printf("\n")
	fmt.Printf("  Response Times (ms):\n")
	fmt.Printf("    Avg : %.2f\n", row.AvgResponseMs)
	fmt.Printf("    P50 : %.2f\n", s.GetP50())
	fmt.Printf("    P90 : %.2f\n", s.GetP90())
	fmt.Printf("    P99 : %.2f\n", s.GetP99())
	fmt.Printf("\n")
	fmt.Printf("  Configuration:\n")
	fmt.Printf("    Partition Count:    %d\n", row.PartitionCount)
	fmt.Printf("    Worker Count:       %d\n", row.WorkerCount)
	fmt.Printf("%s\n", rule())
}

func rule() string {
	return strings.Repeat("=", 70)
}
