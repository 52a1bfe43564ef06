package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	initialRetryInterval = 30 * time.Second
	maxRetryInterval     = 1 * time.Hour
)

// Worker runs a pool of goroutines processing jobs from a RedisQueue.
// Failed jobs are rescheduled with exponential backoff up to MaxRetries.
type Worker struct {
	queue      *RedisQueue
	handlers   map[JobType]JobHandler
	numWorkers int
	quit       chan struct{}
	wg         sync.WaitGroup
}

// NewWorker creates a worker pool
func NewWorker(queue *RedisQueue, numWorkers int) *Worker {
	return &Worker{
		queue:      queue,
		handlers:   make(map[JobType]JobHandler),
		numWorkers: numWorkers,
		quit:       make(chan struct{}),
	}
}

// RegisterHandler binds a handler to a job type. Must be called before Start.
func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.handlers[jobType] = handler
}

// Start launches the worker goroutines
func (w *Worker) Start() {
	log.Info().Int("workers", w.numWorkers).Msg("starting job workers")
	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}
}

// Stop signals the workers to finish and waits for them
func (w *Worker) Stop() {
	close(w.quit)
	w.wg.Wait()
	log.Info().Msg("job workers stopped")
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.quit:
			return
		default:
		}

		ctx := context.Background()
		job, err := w.queue.Dequeue(ctx, 2*time.Second)
		if err != nil {
			log.Error().Err(err).Int("worker", workerID).Msg("dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		w.handle(ctx, workerID, job)
	}
}

func (w *Worker) handle(ctx context.Context, workerID int, job *Job) {
	handler, ok := w.handlers[job.Type]
	if !ok {
		log.Error().Str("type", string(job.Type)).Str("job_id", job.ID.String()).Msg("no handler for job type")
		return
	}

	if err := handler(ctx, job); err != nil {
		w.retry(job, err)
		return
	}
	log.Debug().Int("worker", workerID).Str("type", string(job.Type)).Str("job_id", job.ID.String()).Msg("job done")
}

func (w *Worker) retry(job *Job, cause error) {
	job.RetryCount++
	if job.RetryCount > job.MaxRetries {
		log.Error().Err(cause).
			Str("type", string(job.Type)).
			Str("job_id", job.ID.String()).
			Int("retries", job.RetryCount-1).
			Msg("job exhausted retries")
		return
	}

	delay := nextBackoff(job.RetryCount)
	log.Warn().Err(cause).
		Str("type", string(job.Type)).
		Str("job_id", job.ID.String()).
		Dur("delay", delay).
		Msg("job failed, scheduling retry")

	if err := w.queue.EnqueueIn(delay, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to schedule retry")
	}
}

// nextBackoff doubles the retry interval per attempt, capped at an hour
func nextBackoff(retryCount int) time.Duration {
	delay := initialRetryInterval
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if delay >= maxRetryInterval {
			return maxRetryInterval
		}
	}
	return delay
}
