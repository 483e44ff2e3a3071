package proctor

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/interviewer/internal/model"
)

func TestDeltaForEvent(t *testing.T) {
	tests := []struct {
		kind    model.EventKind
		want    model.ProctoringStats
		wantErr bool
	}{
		{model.EventTabSwitch, model.ProctoringStats{TabSwitchCount: 1}, false},
		{model.EventMultiplePeople, model.ProctoringStats{MultipleFaces: 1, TotalAlerts: 1}, false},
		{model.EventFaceCovered, model.ProctoringStats{FaceCoverings: 1, TotalAlerts: 1}, false},
		{model.EventEyesCovered, model.ProctoringStats{EyeCoverings: 1, TotalAlerts: 1}, false},
		{model.EventNoFace, model.ProctoringStats{NoFaceCount: 1, TotalAlerts: 1}, false},
		{"blink", model.ProctoringStats{}, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := DeltaForEvent(tt.kind)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeltaForAlerts(t *testing.T) {
	got := DeltaForAlerts([]model.AlertToken{model.AlertMultiplePeople, model.AlertEyesCovered})
	assert.Equal(t, model.ProctoringStats{MultipleFaces: 1, EyeCoverings: 1, TotalAlerts: 2}, got)

	assert.Equal(t, model.ProctoringStats{}, DeltaForAlerts(nil))
}

func exerciseCounters(t *testing.T, c Counters) {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	t.Cleanup(func() { _ = c.Delete(ctx, id) })

	empty, err := c.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ProctoringStats{}, empty)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := DeltaForEvent(model.EventTabSwitch)
			assert.NoError(t, c.Add(ctx, id, d))
			assert.NoError(t, c.Add(ctx, id, DeltaForAlerts([]model.AlertToken{model.AlertNoFace})))
		}()
	}
	wg.Wait()

	got, err := c.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ProctoringStats{TabSwitchCount: 20, NoFaceCount: 20, TotalAlerts: 20}, got)

	require.NoError(t, c.Delete(ctx, id))
	got, err = c.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ProctoringStats{}, got)
}

func TestMemoryCounters(t *testing.T) {
	exerciseCounters(t, NewMemoryCounters())
}

func TestRedisCounters(t *testing.T) {
	url := os.Getenv("INTERVIEWER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("INTERVIEWER_TEST_REDIS_URL not set")
	}
	rdb, err := NewRedisClient(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	exerciseCounters(t, NewRedisCounters(rdb, time.Minute))
}

func TestMemoryCountersSnapshotUnknownSession(t *testing.T) {
	m := NewMemoryCounters()
	stats, err := m.Snapshot(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, model.ProctoringStats{}, stats)
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.Add(context.Background(), "s1", model.ProctoringStats{TabSwitchCount: 1}))
	require.NoError(t, m.Delete(context.Background(), "s1"))
	_, err = m.Snapshot(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}
