package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSweeper struct {
	calls   atomic.Int32
	n       int64
	err     error
	explode bool
}

func (f *fakeSweeper) MarkExpired(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	if f.explode {
		panic("store exploded")
	}
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep without deadline")
	}
	return f.n, f.err
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestScheduleFor(t *testing.T) {
	assert.Equal(t, "0 * * * *", ScheduleFor(true))
	assert.Equal(t, "* * * * *", ScheduleFor(false))
}

func TestNewExpiryJobRejectsBadSchedule(t *testing.T) {
	_, err := NewExpiryJob(&fakeSweeper{}, "every tuesday", nil)
	assert.Error(t, err)
}

func TestRunLogsCount(t *testing.T) {
	logger, logs := observed()
	s := &fakeSweeper{n: 4}
	job, err := NewExpiryJob(s, DevelopmentSchedule, logger)
	require.NoError(t, err)

	job.Run()

	assert.Equal(t, int32(1), s.calls.Load())
	entries := logs.FilterMessage("resources marked expired").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(4), entries[0].ContextMap()["count"])
}

func TestRunSwallowsErrors(t *testing.T) {
	logger, logs := observed()
	job, err := NewExpiryJob(&fakeSweeper{err: errors.New("db down")}, DevelopmentSchedule, logger)
	require.NoError(t, err)

	assert.NotPanics(t, job.Run)
	assert.Equal(t, 1, logs.FilterMessage("expiry sweep failed").Len())
}

func TestRunRecoversPanics(t *testing.T) {
	logger, logs := observed()
	job, err := NewExpiryJob(&fakeSweeper{explode: true}, DevelopmentSchedule, logger)
	require.NoError(t, err)

	assert.NotPanics(t, job.Run)
	assert.Equal(t, 1, logs.FilterMessage("expiry sweep panicked").Len())
}

func TestStartStop(t *testing.T) {
	job, err := NewExpiryJob(&fakeSweeper{}, "@every 1s", nil)
	require.NoError(t, err)

	job.Start()
	time.Sleep(1500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job.Stop(ctx)

	calls := job.sweeper.(*fakeSweeper).calls.Load()
	assert.Positive(t, calls)

	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, calls, job.sweeper.(*fakeSweeper).calls.Load())
}
