package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTrimmer struct {
	calls  atomic.Int32
	maxAge atomic.Int64
}

func (c *countingTrimmer) Trim(_ context.Context, maxAge time.Duration) (int, error) {
	c.calls.Add(1)
	c.maxAge.Store(int64(maxAge))
	return 0, nil
}

func TestScheduleTrim(t *testing.T) {
	s := New()
	trimmer := &countingTrimmer{}
	require.NoError(t, s.ScheduleTrim("@every 1s", trimmer, time.Hour))

	s.Start()
	assert.Eventually(t, func() bool { return trimmer.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
	assert.Equal(t, int64(time.Hour), trimmer.maxAge.Load())
}

func TestScheduleTrimRejectsBadSpec(t *testing.T) {
	err := New().ScheduleTrim("whenever", &countingTrimmer{}, time.Hour)
	assert.Error(t, err)
}
