package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	ctx := context.Background()
	q := New("test", time.Minute, nil, nil)

	for _, url := range []string{"wss://a", "wss://b", "wss://c"} {
		require.NoError(t, q.Enqueue(ctx, NewJob(KindCheckSingle, url)))
	}
	require.Equal(t, 3, q.Len())

	for _, want := range []string{"wss://a", "wss://b", "wss://c"} {
		j, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, want, j.RelayURL)
		require.Equal(t, 1, j.Attempts)
		q.Ack(j.ID)
	}
	require.Zero(t, q.Len())
	require.Zero(t, q.InFlight())
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	ctx := context.Background()
	q := New("test", time.Minute, nil, nil)

	done := make(chan *Job, 1)
	go func() {
		j, err := q.Dequeue(ctx)
		if err == nil {
			done <- j
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, NewJob(KindCheckSingle, "wss://a")))

	select {
	case j := <-done:
		require.Equal(t, "wss://a", j.RelayURL)
	case <-time.After(2 * time.Second):
		t.Fatal("dequeue never woke up")
	}
}

func TestLockExpiryRedelivers(t *testing.T) {
	ctx := context.Background()
	q := New("test", 30*time.Millisecond, nil, nil)

	require.NoError(t, q.Enqueue(ctx, NewJob(KindCheckSingle, "wss://a")))

	j1, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, j1.Attempts)
	// never acked: the lock expires and the job comes back

	j2, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, j1.ID, j2.ID)
	require.Equal(t, 2, j2.Attempts)
	q.Ack(j2.ID)
}

func TestAckPreventsRedelivery(t *testing.T) {
	q := New("test", 20*time.Millisecond, nil, nil)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, NewJob(KindCheckSingle, "wss://a")))
	j, err := q.Dequeue(ctx)
	require.NoError(t, err)
	q.Ack(j.ID)

	time.Sleep(50 * time.Millisecond)

	dctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = q.Dequeue(dctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAckUnknownIDIsNoop(t *testing.T) {
	q := New("test", time.Minute, nil, nil)
	q.Ack("no-such-delivery")
	require.Zero(t, q.InFlight())
}

func TestPauseHoldsJobsResumeReleases(t *testing.T) {
	ctx := context.Background()
	q := New("test", time.Minute, nil, nil)

	q.Pause()
	require.NoError(t, q.Enqueue(ctx, NewJob(KindCheckSingle, "wss://a")))

	dctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	_, err := q.Dequeue(dctx)
	cancel()
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, q.Len())

	q.Resume()
	j, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "wss://a", j.RelayURL)
	q.Ack(j.ID)
}

func TestStopRefusesWorkAndDrains(t *testing.T) {
	ctx := context.Background()
	q := New("test", time.Minute, nil, nil)

	require.NoError(t, q.Enqueue(ctx, NewJob(KindCheckSingle, "wss://a")))
	j, err := q.Dequeue(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		q.Ack(j.ID)
	}()

	sctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, q.Stop(sctx))

	require.ErrorIs(t, q.Enqueue(ctx, NewJob(KindCheckSingle, "wss://b")), ErrStopped)
	_, err = q.Dequeue(ctx)
	require.ErrorIs(t, err, ErrStopped)
}

func TestStopTimesOutOnStuckJob(t *testing.T) {
	ctx := context.Background()
	q := New("test", time.Minute, nil, nil)

	require.NoError(t, q.Enqueue(ctx, NewJob(KindCheckSingle, "wss://a")))
	_, err := q.Dequeue(ctx)
	require.NoError(t, err)

	sctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, q.Stop(sctx), context.DeadlineExceeded)
}

func TestKindTrawlBatch(t *testing.T) {
	require.Equal(t, Kind("trawlBatch0"), KindTrawlBatch(0))
	require.Equal(t, Kind("trawlBatch17"), KindTrawlBatch(17))
	require.True(t, KindTrawlBatch(3).IsTrawlBatch())
	require.False(t, KindCheckSingle.IsTrawlBatch())
	require.False(t, KindPopulate.IsTrawlBatch())
}
