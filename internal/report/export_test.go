package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobload/internal/runner"
	"jobload/internal/stats"
)

func TestWriteRequestsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.csv")

	results := []runner.Result{
		{TimeStamp: time.Now(), ClientID: "partition-test-user-1", Status: 202, Success: true, ResponseTime: 35 * time.Millisecond, JobID: "j-1"},
		{TimeStamp: time.Now(), ClientID: "partition-test-user-2", Status: 503, Success: false, ResponseTime: 120 * time.Millisecond, Message: "Server error 503"},
	}

	require.NoError(t, WriteRequestsCSV(results, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "202", rows[1][2])
	assert.Equal(t, "true", rows[1][3])
	assert.Equal(t, "j-1", rows[1][5])
	assert.Equal(t, "503", rows[2][2])
	assert.Equal(t, "Server error 503", rows[2][6])
}

func TestWriteSummaryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")

	s := stats.NewRequestStats()
	s.Add(true, 100, 35000)
	s.Add(true, 100, 45000)

	require.NoError(t, WriteSummaryJSON(sampleRow(time.Now()), s, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, float64(1000), summary["total_submitted"])
	assert.Equal(t, float64(16), summary["partition_count"])
	assert.Contains(t, summary, "p99_response_time_ms")
}
