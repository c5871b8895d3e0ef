package harness

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobload/internal/metrics"
	"jobload/internal/runner"
	"jobload/internal/storage"
)

func acceptingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"jobId":"j-1"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newHarness(t *testing.T, host string, opts Options) *Harness {
	t.Helper()
	cfg := runner.Config{
		Host:       host,
		NumUsers:   2,
		SpawnRate:  100,
		DurationS:  1,
		TimeoutSec: 5,
		RunName:    "harness-test",
		WaitMin:    time.Millisecond,
		WaitMax:    2 * time.Millisecond,
	}
	r := runner.NewRunner(cfg, metrics.NewRunMetrics(16, 4), nil)
	return New(r, opts, nil)
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestOnStartResetsMetrics(t *testing.T) {
	h := newHarness(t, "http://localhost", Options{})
	m := h.Runner.Metrics

	m.Classify(202, nil)
	require.Equal(t, uint64(1), m.TotalSubmitted())

	h.OnStart()

	assert.Zero(t, m.TotalSubmitted())
	assert.False(t, m.StartTime().IsZero())
}

func TestOnStopAppendsOneRowPerRun(t *testing.T) {
	srv := acceptingServer(t)
	csvPath := filepath.Join(t.TempDir(), "results.csv")
	h := newHarness(t, srv.URL, Options{CSVPath: csvPath})

	require.NoError(t, h.Start(context.Background()))

	rows := readRows(t, csvPath)
	require.Len(t, rows, 2)
	first := rows[1]

	// Second sequential run appends without duplicating the header and
	// starts from reset counters.
	require.NoError(t, h.Start(context.Background()))

	rows = readRows(t, csvPath)
	require.Len(t, rows, 3)
	assert.Equal(t, "timestamp", rows[0][0])
	assert.NotEqual(t, first[0], rows[2][0])

	// total == successful + failed + rate_limited in both rows
	for _, row := range rows[1:] {
		assert.Equal(t, row[3], sumCols(t, row, 4, 5, 6))
	}
}

func TestOnStopWithoutStartReportsNothing(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "results.csv")
	h := newHarness(t, "http://localhost", Options{CSVPath: csvPath})

	require.NoError(t, h.OnStop())

	_, err := os.Stat(csvPath)
	assert.True(t, os.IsNotExist(err))
}

func TestOnStopPropagatesCSVFailure(t *testing.T) {
	h := newHarness(t, "http://localhost", Options{
		CSVPath: filepath.Join(t.TempDir(), "missing", "deep", "results.csv"),
	})
	h.Runner.Metrics.Reset()
	h.Runner.Metrics.Classify(202, nil)

	assert.Error(t, h.OnStop())
}

func TestOnStopRecordsHistory(t *testing.T) {
	srv := acceptingServer(t)
	dir := t.TempDir()
	historyPath := filepath.Join(dir, "history.db")
	h := newHarness(t, srv.URL, Options{
		CSVPath:     filepath.Join(dir, "results.csv"),
		HistoryPath: historyPath,
	})

	require.NoError(t, h.Start(context.Background()))

	store, err := storage.NewStore(historyPath)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "harness-test", records[0].RunName)
	assert.Greater(t, records[0].Row.TotalSubmitted, uint64(0))
}

func TestOnStopWritesRequestReports(t *testing.T) {
	srv := acceptingServer(t)
	dir := t.TempDir()
	prefix := filepath.Join(dir, "report")
	h := newHarness(t, srv.URL, Options{
		CSVPath:   filepath.Join(dir, "results.csv"),
		OutPrefix: prefix,
	})

	require.NoError(t, h.Start(context.Background()))

	_, err := os.Stat(prefix + ".csv")
	assert.NoError(t, err)
	_, err = os.Stat(prefix + "_summary.json")
	assert.NoError(t, err)
}

func sumCols(t *testing.T, row []string, cols ...int) string {
	t.Helper()
	total := 0
	for _, c := range cols {
		v, err := strconv.Atoi(row[c])
		require.NoError(t, err)
		total += v
	}
	return strconv.Itoa(total)
}
