package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRouteDispatch(t *testing.T) {
	ctx := context.Background()
	q := New("test", time.Minute, nil, nil)
	c := NewController(q, nil, 1, nil)

	var gotCheck, gotBatch string
	c.Register(KindCheckSingle, func(_ context.Context, j *Job) error {
		gotCheck = j.RelayURL
		return nil
	})
	c.RegisterTrawlBatch(func(_ context.Context, j *Job) error {
		gotBatch = string(j.Kind)
		return nil
	})

	require.NoError(t, c.Route(ctx, NewJob(KindCheckSingle, "wss://a")))
	require.Equal(t, "wss://a", gotCheck)

	require.NoError(t, c.Route(ctx, NewBatchJob(KindTrawlBatch(4), []string{"wss://b"})))
	require.Equal(t, "trawlBatch4", gotBatch)
}

func TestRouteUnknownKindIsDropped(t *testing.T) {
	q := New("test", time.Minute, nil, nil)
	c := NewController(q, nil, 1, nil)

	// no handlers registered: must succeed so the job gets acked, not
	// redelivered forever
	require.NoError(t, c.Route(context.Background(), NewJob(Kind("mystery"), "wss://a")))
}

func TestStartRunsPopulateOnceBeforeWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New("test", time.Minute, nil, nil)
	c := NewController(q, nil, 1, nil)

	var populates atomic.Int32
	c.Register(KindPopulate, func(context.Context, *Job) error {
		populates.Add(1)
		return nil
	})

	require.NoError(t, c.Start(ctx))
	require.Equal(t, int32(1), populates.Load())

	sctx, scancel := context.WithTimeout(context.Background(), time.Second)
	defer scancel()
	require.NoError(t, c.Stop(sctx))
}

func TestStartFailsWhenInitialPopulateFails(t *testing.T) {
	q := New("test", time.Minute, nil, nil)
	c := NewController(q, nil, 1, nil)

	boom := errors.New("boom")
	c.Register(KindPopulate, func(context.Context, *Job) error { return boom })

	require.ErrorIs(t, c.Start(context.Background()), boom)
}

func TestPoolProcessesJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New("test", time.Minute, nil, nil)
	c := NewController(q, nil, 2, nil)

	var mu sync.Mutex
	seen := map[string]bool{}
	done := make(chan struct{}, 3)
	c.Register(KindCheckSingle, func(_ context.Context, j *Job) error {
		mu.Lock()
		seen[j.RelayURL] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	require.NoError(t, c.Start(ctx))
	for _, url := range []string{"wss://a", "wss://b", "wss://c"} {
		require.NoError(t, q.Enqueue(ctx, NewJob(KindCheckSingle, url)))
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("jobs never processed")
		}
	}

	sctx, scancel := context.WithTimeout(context.Background(), time.Second)
	defer scancel()
	require.NoError(t, c.Stop(sctx))

	require.Len(t, seen, 3)
	require.Zero(t, q.InFlight())
}

func TestPoolRedeliversFailedJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New("test", 30*time.Millisecond, nil, nil)
	c := NewController(q, nil, 1, nil)

	var attempts atomic.Int32
	done := make(chan struct{})
	c.Register(KindCheckSingle, func(_ context.Context, j *Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})

	require.NoError(t, c.Start(ctx))
	require.NoError(t, q.Enqueue(ctx, NewJob(KindCheckSingle, "wss://a")))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("failed job was never redelivered")
	}
	require.Equal(t, int32(2), attempts.Load())

	sctx, scancel := context.WithTimeout(context.Background(), time.Second)
	defer scancel()
	require.NoError(t, c.Stop(sctx))
}
