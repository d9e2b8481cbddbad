package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLocker(t *testing.T) (*miniredis.Miniredis, *redislock.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redislock.New(client)
}

func countingJob(name string, interval time.Duration, n *atomic.Int32) Job {
	return Job{Name: name, Interval: interval, Run: func(context.Context) error {
		n.Add(1)
		return nil
	}}
}

func TestScheduler_Register(t *testing.T) {
	s, err := NewScheduler(Config{}, nil, zap.NewNop())
	require.NoError(t, err)

	var n atomic.Int32
	require.NoError(t, s.Register(countingJob("a", time.Minute, &n)))
	assert.ErrorIs(t, s.Register(countingJob("a", time.Minute, &n)), ErrJobExists)
	assert.ErrorIs(t, s.Register(Job{Name: "b", Interval: 0, Run: func(context.Context) error { return nil }}), ErrInvalidConfig)

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()
	assert.ErrorIs(t, s.Register(countingJob("c", time.Minute, &n)), ErrSchedulerRunning)
}

func TestScheduler_RunOnce(t *testing.T) {
	_, locker := newLocker(t)
	s, err := NewScheduler(Config{}, locker, zap.NewNop())
	require.NoError(t, err)

	var n atomic.Int32
	require.NoError(t, s.Register(countingJob("sweep", time.Hour, &n)))

	require.NoError(t, s.RunOnce(context.Background(), "sweep"))
	require.NoError(t, s.RunOnce(context.Background(), "sweep"))
	assert.Equal(t, int32(2), n.Load(), "lock is released after each run")

	assert.ErrorIs(t, s.RunOnce(context.Background(), "missing"), ErrJobNotFound)
}

func TestScheduler_SkipsWhenLockHeldElsewhere(t *testing.T) {
	_, locker := newLocker(t)
	cfg := Config{LockPrefix: "test:"}
	s, err := NewScheduler(cfg, locker, zap.NewNop())
	require.NoError(t, err)

	var n atomic.Int32
	require.NoError(t, s.Register(countingJob("sweep", time.Hour, &n)))

	other, err := locker.Obtain(context.Background(), "test:sweep", time.Minute, nil)
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background(), "sweep"))
	assert.Equal(t, int32(0), n.Load())

	require.NoError(t, other.Release(context.Background()))
	require.NoError(t, s.RunOnce(context.Background(), "sweep"))
	assert.Equal(t, int32(1), n.Load())
}

func TestScheduler_RedisDownFailsRun(t *testing.T) {
	mr, locker := newLocker(t)
	s, err := NewScheduler(Config{}, locker, zap.NewNop())
	require.NoError(t, err)
	var n atomic.Int32
	require.NoError(t, s.Register(countingJob("sweep", time.Hour, &n)))

	mr.Close()
	assert.Error(t, s.RunOnce(context.Background(), "sweep"))
	assert.Equal(t, int32(0), n.Load())
}

func TestScheduler_TickerRunsUntilStop(t *testing.T) {
	s, err := NewScheduler(Config{}, nil, zap.NewNop())
	require.NoError(t, err)

	var n atomic.Int32
	require.NoError(t, s.Register(countingJob("tick", 10*time.Millisecond, &n)))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	stopped := n.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, n.Load())
	assert.NoError(t, s.Stop(ctx), "second stop is a no-op")
}

type fakeSweeper struct {
	marked int64
	err    error
	calls  int
}

func (f *fakeSweeper) SweepOverdue(context.Context, time.Time) (int64, error) {
	f.calls++
	return f.marked, f.err
}

func TestOverdueSweepJob(t *testing.T) {
	sweeper := &fakeSweeper{marked: 3}
	job := NewOverdueSweepJob(sweeper, time.Hour, nil, nil)
	assert.Equal(t, OverdueSweepJobName, job.Name)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, sweeper.calls)

	sweeper.err = errors.New("db down")
	assert.EqualError(t, job.Run(context.Background()), "db down")
}
