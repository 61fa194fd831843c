package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/metrics"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

const (
	RemoteCleanupQueue = "queue:remote-file-cleanup"

	maxAttempts   = 3
	popTimeout    = 5 * time.Second
	deleteTimeout = 30 * time.Second
	lockTTL       = 2 * time.Minute
)

// FileDeleter removes a file from the remote analysis service.
type FileDeleter interface {
	DeleteFile(ctx context.Context, name string) error
}

// Pool retries remote deletes that failed on the request path. Jobs live in a
// Redis list so they survive a restart of this process.
type Pool struct {
	redis       *redis.Client
	remote      FileDeleter
	metrics     *metrics.Recorder
	workerCount int
	popTimeout  time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewPool(redisClient *redis.Client, remote FileDeleter, recorder *metrics.Recorder, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		remote:      remote,
		metrics:     recorder,
		workerCount: workerCount,
		popTimeout:  popTimeout,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Printf("Started %d cleanup worker goroutines", p.workerCount)
}

// Stop signals the workers and waits for in-flight deletes to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

// EnqueueRemoteDelete queues the first retry for a remote file.
func (p *Pool) EnqueueRemoteDelete(ctx context.Context, name string) error {
	job := models.RemoteDeleteJob{
		ID:         uuid.New(),
		FileName:   name,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := encodeJob(&job)
	if err != nil {
		return err
	}
	if err := p.redis.LPush(ctx, RemoteCleanupQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to queue remote delete for %s: %w", name, err)
	}
	log.Printf("Queued remote delete retry for %s (job %s)", name, job.ID)
	return nil
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			log.Printf("Cleanup worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, p.popTimeout, RemoteCleanupQueue).Result()
		if err != nil {
			if err != redis.Nil {
				// Redis unavailable; avoid spinning.
				select {
				case <-p.stopChan:
				case <-time.After(p.popTimeout):
				}
			}
			continue
		}

		if len(result) < 2 {
			continue
		}

		job, err := decodeJob(result[1])
		if err != nil {
			log.Printf("Cleanup worker %d: failed to parse job: %v", id, err)
			continue
		}

		lockKey := fmt.Sprintf("remote_delete_lock:%s", job.ID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
		if err != nil || !locked {
			continue
		}

		p.process(ctx, id, job)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) process(ctx context.Context, workerID int, job *models.RemoteDeleteJob) {
	dctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	err := p.remote.DeleteFile(dctx, job.FileName)
	cancel()

	if err == nil {
		log.Printf("Cleanup worker %d: deleted remote file %s", workerID, job.FileName)
		p.metrics.RemoteDeleteRetried("deleted")
		return
	}

	p.handleFailure(job, err)
}

func (p *Pool) handleFailure(job *models.RemoteDeleteJob, err error) {
	job.Attempts++
	job.LastError = err.Error()

	if job.Attempts >= maxAttempts {
		log.Printf("ERROR: giving up on remote file %s after %d attempts: %s", job.FileName, job.Attempts, job.LastError)
		p.metrics.RemoteDeleteRetried("abandoned")
		return
	}

	log.Printf("Remote delete of %s failed (attempt %d): %s, retrying", job.FileName, job.Attempts, job.LastError)
	p.metrics.RemoteDeleteRetried("requeued")

	data, encErr := encodeJob(job)
	if encErr != nil {
		log.Printf("ERROR: re-encode job %s: %v", job.ID, encErr)
		return
	}
	time.AfterFunc(backoff(job.Attempts), func() {
		if err := p.redis.LPush(context.Background(), RemoteCleanupQueue, data).Err(); err != nil {
			log.Printf("ERROR: failed to re-queue remote delete for %s: %v", job.FileName, err)
		}
	})
}

func backoff(attempts int) time.Duration {
	return time.Duration(1<<uint(attempts)) * time.Second
}

func encodeJob(job *models.RemoteDeleteJob) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode remote delete job: %w", err)
	}
	return string(data), nil
}

func decodeJob(raw string) (*models.RemoteDeleteJob, error) {
	var job models.RemoteDeleteJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, err
	}
	if job.FileName == "" {
		return nil, fmt.Errorf("job %s has no file name", job.ID)
	}
	return &job, nil
}
