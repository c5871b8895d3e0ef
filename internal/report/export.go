package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"jobload/internal/runner"
	"jobload/internal/stats"
)

// WriteRequestsCSV dumps every submission attempt to a CSV file for
// offline charting. Written once at run end, overwriting any previous
// report under the same prefix.
func WriteRequestsCSV(results []runner.Result, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"timeStamp", "clientId", "responseCode", "success",
		"responseTimeMs", "jobId", "message",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		record := []string{
			fmt.Sprintf("%d", res.TimeStamp.UnixMilli()),
			res.ClientID,
			strconv.Itoa(res.Status),
			strconv.FormatBool(res.Success),
			fmt.Sprintf("%d", res.ResponseTime.Milliseconds()),
			res.JobID,
			res.Message,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummaryJSON writes the aggregate run summary plus response-time
// percentiles next to the requests CSV.
func WriteSummaryJSON(row ResultRow, s *stats.RequestStats, filename string) error {
	summary := map[string]interface{}{
		"timestamp":               row.Timestamp,
		"partition_count":         row.PartitionCount,
		"worker_count":            row.WorkerCount,
		"total_submitted":         row.TotalSubmitted,
		"successful":              row.Successful,
		"failed":                  row.Failed,
		"rate_limited":            row.RateLimited,
		"error_rate_pct":          row.ErrorRatePct,
		"duration_sec":            row.DurationSec,
		"throughput_jobs_per_sec": row.Throughput,
		"avg_response_time_ms":    row.AvgResponseMs,
		"p50_response_time_ms":    s.GetP50(),
		"p90_response_time_ms":    s.GetP90(),
		"p99_response_time_ms":    s.GetP99(),
		"max_response_time_ms":    s.ResponseTime.Max() / 1000,
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
