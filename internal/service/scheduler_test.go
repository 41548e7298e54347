package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leadloom/leadloom/internal/config"
)

type countingProcessor struct {
	calls atomic.Int32
	err   error
}

func (p *countingProcessor) ProcessDueItems(_ context.Context) (*ProcessResult, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &ProcessResult{Processed: 1, Succeeded: 1}, nil
}

func TestSchedulerRunsUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	processor := &countingProcessor{}
	s := NewScheduler(&config.SchedulerConfig{Enabled: true, Interval: "10ms"}, zaptest.NewLogger(t), processor, nil)
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return processor.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	stopped := processor.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, processor.calls.Load())
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	processor := &countingProcessor{err: errors.New("store down")}
	s := NewScheduler(&config.SchedulerConfig{Enabled: true, Interval: "10ms"}, zaptest.NewLogger(t), processor, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.Eventually(t, func() bool { return processor.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	s.Stop()
}

func TestSchedulerDisabledAndInvalid(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	processor := &countingProcessor{}
	disabled := NewScheduler(&config.SchedulerConfig{Enabled: false, Interval: "10ms"}, zaptest.NewLogger(t), processor, nil)
	require.NoError(t, disabled.Start(context.Background()))
	disabled.Stop()
	assert.Zero(t, processor.calls.Load())

	invalid := NewScheduler(&config.SchedulerConfig{Enabled: true, Interval: "soon"}, zaptest.NewLogger(t), processor, nil)
	assert.Error(t, invalid.Start(context.Background()))
	invalid.Stop()
}

func TestSchedulerRunOnceSkipsWhileLocked(t *testing.T) {
	lock := NewLocalLock()
	processor := &countingProcessor{}
	s := NewScheduler(&config.SchedulerConfig{Enabled: true, Interval: "1m"}, zaptest.NewLogger(t), processor, lock)

	release, err := lock.TryLock(context.Background())
	require.NoError(t, err)
	require.NotNil(t, release)

	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Zero(t, processor.calls.Load())

	release()
	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.EqualValues(t, 1, processor.calls.Load())
}

func TestSchedulerRunOnceReturnsProcessorError(t *testing.T) {
	processor := &countingProcessor{err: errors.New("db down")}
	s := NewScheduler(&config.SchedulerConfig{Enabled: true, Interval: "1m"}, zaptest.NewLogger(t), processor, nil)

	_, err := s.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")

	// The lock is released after a failed run.
	processor.err = nil
	_, err = s.RunOnce(context.Background())
	assert.NoError(t, err)
}

func TestRedisLock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lock := NewRedisLock(client, "leadloom:scheduler", time.Minute, zaptest.NewLogger(t))
	other := NewRedisLock(client, "leadloom:scheduler", time.Minute, zaptest.NewLogger(t))

	release, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, release)
	assert.Equal(t, time.Minute, mr.TTL("leadloom:scheduler"))

	blocked, err := other.TryLock(ctx)
	require.NoError(t, err)
	assert.Nil(t, blocked)

	release()
	assert.False(t, mr.Exists("leadloom:scheduler"))

	again, err := other.TryLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, again)
	again()
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	core, logs := observer.New(zap.WarnLevel)
	stale := NewRedisLock(client, "leadloom:scheduler", time.Second, zap.New(core))
	fresh := NewRedisLock(client, "leadloom:scheduler", time.Minute, zap.New(core))

	releaseStale, err := stale.TryLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, releaseStale)

	mr.FastForward(2 * time.Second)

	releaseFresh, err := fresh.TryLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, releaseFresh)

	releaseStale()
	assert.True(t, mr.Exists("leadloom:scheduler"))
	assert.Equal(t, 1, logs.FilterMessage("Run lock expired before release").Len())

	releaseFresh()
	assert.False(t, mr.Exists("leadloom:scheduler"))
	assert.Equal(t, 1, logs.Len())
}

func TestRedisLockReleaseFailureIsLogged(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	core, logs := observer.New(zap.WarnLevel)
	release, err := NewRedisLock(client, "leadloom:scheduler", time.Minute, zap.New(core)).TryLock(context.Background())
	require.NoError(t, err)
	require.NotNil(t, release)

	mr.Close()
	release()

	entries := logs.FilterMessage("Failed to release run lock").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, "leadloom:scheduler", entries[0].ContextMap()["key"])
}

func TestRedisLockUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	release, err := NewRedisLock(client, "k", time.Minute, zaptest.NewLogger(t)).TryLock(context.Background())
	assert.Error(t, err)
	assert.Nil(t, release)
}
