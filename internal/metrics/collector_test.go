package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamagent/streamchat-go/internal/metrics"
)

func TestRecordTimingPopulatesOperations(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordTiming(metrics.OpStreamOpen, 40*time.Millisecond)
	c.RecordTiming(metrics.OpStore, 10*time.Millisecond)
	c.RecordTiming(metrics.OpStore, 30*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.StreamOpen)
	assert.Equal(t, int64(1), snap.StreamOpen.Count)
	assert.Equal(t, int64(40), snap.StreamOpen.MinTimeMs)
	assert.Nil(t, snap.StreamOpen.TotalFrames, "timing-only ops carry no stream stats")

	require.NotNil(t, snap.Store)
	assert.Equal(t, int64(2), snap.Store.Count)
	assert.Equal(t, int64(10), snap.Store.MinTimeMs)
	assert.Equal(t, int64(30), snap.Store.MaxTimeMs)
	assert.InDelta(t, 20.0, snap.Store.AvgTimeMs, 0.01)

	assert.Nil(t, snap.Turn, "no turn recorded yet")
}

func TestRecordTurnAggregatesStreamStats(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordTurn(100*time.Millisecond, 5, 2048, 1)
	c.RecordTurn(200*time.Millisecond, 3, 1024, 0)

	snap := c.Snapshot()
	require.NotNil(t, snap.Turn)
	assert.Equal(t, int64(2), snap.Turn.Count)

	require.NotNil(t, snap.Turn.TotalFrames)
	assert.Equal(t, int64(8), *snap.Turn.TotalFrames)
	require.NotNil(t, snap.Turn.TotalBytes)
	assert.Equal(t, int64(3072), *snap.Turn.TotalBytes)
	require.NotNil(t, snap.Turn.TotalAnomalies)
	assert.Equal(t, int64(1), *snap.Turn.TotalAnomalies)
	require.NotNil(t, snap.Turn.MinFrames)
	assert.Equal(t, int64(3), *snap.Turn.MinFrames)
	require.NotNil(t, snap.Turn.MaxFrames)
	assert.Equal(t, int64(5), *snap.Turn.MaxFrames)
}

func TestSnapshotEmptyCollector(t *testing.T) {
	snap := metrics.NewCollector().Snapshot()

	assert.Nil(t, snap.Turn)
	assert.Nil(t, snap.StreamOpen)
	assert.Nil(t, snap.Store)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}
