package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ResultRow is one line of the append-only results log: a full run
// condensed to the numbers the partition-scaling comparison needs.
type ResultRow struct {
	Timestamp      time.Time
	PartitionCount int
	WorkerCount    int
	TotalSubmitted uint64
	Successful     uint64
	Failed         uint64
	RateLimited    uint64
	ErrorRatePct   float64
	DurationSec    float64
	Throughput     float64
	AvgResponseMs  float64
}

var resultHeader = []string{
	"timestamp",
	"partition_count",
	"worker_count",
	"total_submitted",
	"successful",
	"failed",
	"rate_limited",
	"error_rate_%",
	"duration_sec",
	"throughput_jobs_per_sec",
	"avg_response_time_ms",
}

func (r ResultRow) record() []string {
	return []string{
		r.Timestamp.Format(time.RFC3339Nano),
		strconv.Itoa(r.PartitionCount),
		strconv.Itoa(r.WorkerCount),
		strconv.FormatUint(r.TotalSubmitted, 10),
		strconv.FormatUint(r.Successful, 10),
		strconv.FormatUint(r.Failed, 10),
		strconv.FormatUint(r.RateLimited, 10),
		fmt.Sprintf("%.2f", r.ErrorRatePct),
		fmt.Sprintf("%.2f", r.DurationSec),
		fmt.Sprintf("%.2f", r.Throughput),
		fmt.Sprintf("%.2f", r.AvgResponseMs),
	}
}

// AppendRow appends one run's row to the results CSV, writing the
// header first only when the file does not already exist. Repeated
// runs against the same file accumulate rows under a single header.
func AppendRow(path string, row ResultRow) error {
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(resultHeader); err != nil {
			return err
		}
	}
	if err := w.Write(row.record()); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
