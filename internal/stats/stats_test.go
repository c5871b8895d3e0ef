package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvgResponseMsEmptyIsZero(t *testing.T) {
	s := NewRequestStats()
	assert.Zero(t, s.AvgResponseMs())
}

func TestAddAndAggregate(t *testing.T) {
	s := NewRequestStats()

	s.Add(true, 256, 10_000)  // 10ms
	s.Add(true, 256, 20_000)  // 20ms
	s.Add(false, 0, 30_000)   // 30ms
	s.Add(false, 0, 100_000)  // 100ms

	assert.Equal(t, uint64(4), s.Requests)
	assert.Equal(t, uint64(2), s.Success)
	assert.Equal(t, uint64(2), s.Fail)
	assert.Equal(t, uint64(512), s.Bytes)

	// hdrhistogram stores to 3 significant figures
	assert.InDelta(t, 40.0, s.AvgResponseMs(), 1.0)
	assert.InDelta(t, 100.0, s.GetP99(), 2.0)
	assert.LessOrEqual(t, s.GetP50(), s.GetP90())
	assert.LessOrEqual(t, s.GetP90(), s.GetP99())
}

func TestReset(t *testing.T) {
	s := NewRequestStats()
	s.Add(true, 100, 5_000)
	s.Reset()

	assert.Zero(t, s.Requests)
	assert.Zero(t, s.Success)
	assert.Zero(t, s.Bytes)
	assert.Zero(t, s.ResponseTime.TotalCount())
	assert.Zero(t, s.AvgResponseMs())
}
