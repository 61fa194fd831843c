package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/metrics"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2, DisableIdentity: true})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// scriptedDeleter fails the first len(errs) calls with the given errors and
// reports every call on calls.
type scriptedDeleter struct {
	mu    sync.Mutex
	errs  []error
	calls chan string
}

func (d *scriptedDeleter) DeleteFile(ctx context.Context, name string) error {
	d.mu.Lock()
	var err error
	if len(d.errs) > 0 {
		err = d.errs[0]
		d.errs = d.errs[1:]
	}
	d.mu.Unlock()

	d.calls <- name
	return err
}

func waitForCall(t *testing.T, calls <-chan string, within time.Duration) string {
	t.Helper()
	select {
	case name := <-calls:
		return name
	case <-time.After(within):
		t.Fatalf("no delete within %s", within)
		return ""
	}
}

func TestEnqueueRemoteDelete(t *testing.T) {
	mr, client := newTestRedis(t)
	pool := NewPool(client, &scriptedDeleter{calls: make(chan string, 1)}, metrics.New(), 1)

	if err := pool.EnqueueRemoteDelete(context.Background(), "files/abc"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	items, err := mr.List(RemoteCleanupQueue)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one queued job, got %d", len(items))
	}
	job, err := decodeJob(items[0])
	if err != nil {
		t.Fatalf("decode queued job: %v", err)
	}
	if job.FileName != "files/abc" || job.Attempts != 0 {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestPool_DeletesQueuedFile(t *testing.T) {
	mr, client := newTestRedis(t)
	recorder := metrics.New()
	deleter := &scriptedDeleter{calls: make(chan string, 4)}

	pool := NewPool(client, deleter, recorder, 1)
	pool.popTimeout = time.Second

	if err := pool.EnqueueRemoteDelete(context.Background(), "files/abc"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	pool.Start()

	if name := waitForCall(t, deleter.calls, 5*time.Second); name != "files/abc" {
		t.Fatalf("expected delete of files/abc, got %q", name)
	}
	pool.Stop()

	if mr.Exists(RemoteCleanupQueue) {
		t.Fatalf("expected queue to be drained")
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected job lock to be released, found keys %v", keys)
	}
	assertExposed(t, recorder, `interview_analyzer_remote_delete_retries_total{result="deleted"} 1`)
}

func TestPool_RequeuesFailedDelete(t *testing.T) {
	_, client := newTestRedis(t)
	recorder := metrics.New()
	deleter := &scriptedDeleter{
		errs:  []error{errors.New("503 from files api")},
		calls: make(chan string, 4),
	}

	pool := NewPool(client, deleter, recorder, 1)
	pool.popTimeout = time.Second

	if err := pool.EnqueueRemoteDelete(context.Background(), "files/retry"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	pool.Start()
	defer pool.Stop()

	waitForCall(t, deleter.calls, 5*time.Second)
	// Second attempt comes back after backoff(1).
	if name := waitForCall(t, deleter.calls, backoff(1)+5*time.Second); name != "files/retry" {
		t.Fatalf("expected retry of files/retry, got %q", name)
	}
	pool.Stop()

	assertExposed(t, recorder, `interview_analyzer_remote_delete_retries_total{result="requeued"} 1`)
	assertExposed(t, recorder, `interview_analyzer_remote_delete_retries_total{result="deleted"} 1`)
}
