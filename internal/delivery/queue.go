package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/metrics"
	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/Butonix/localhub/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

var (
	ErrQueueFull    = errors.New("delivery queue is full")
	ErrQueueStopped = errors.New("delivery queue is stopped")
	ErrJobNotFound  = errors.New("job not found")
)

// Adapter delivers a finished notification over one channel
type Adapter interface {
	Name() string
	Deliver(ctx context.Context, job *Job) error
}

// Job is one notification waiting for delivery
type Job struct {
	ID           string                `json:"id"`
	Notification *models.Notification  `json:"notification"`
	Message      notifications.Message `json:"message"`
	Status       string                `json:"status"`
	Attempts     int                   `json:"attempts"`
	CreatedAt    time.Time             `json:"created_at"`
	CompletedAt  *time.Time            `json:"completed_at,omitempty"`
	ErrorMessage *string               `json:"error_message,omitempty"`

	// Targets already delivered to, so a retried adapter skips them. Only
	// the worker running the job touches it.
	delivered map[string]struct{}
}

// MarkDelivered records that target received the job
func (j *Job) MarkDelivered(target string) {
	if j.delivered == nil {
		j.delivered = make(map[string]struct{})
	}
	j.delivered[target] = struct{}{}
}

// Delivered reports whether target already received the job
func (j *Job) Delivered(target string) bool {
	_, ok := j.delivered[target]
	return ok
}

// Options configures a Queue
type Options struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	RetryDelay  time.Duration
	JobTimeout  time.Duration
	// KeepResults retains finished jobs for GetJobStatus; used by tests
	KeepResults bool
}

func (o *Options) withDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Buffer <= 0 {
		o.Buffer = 1000
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 30 * time.Second
	}
}

// Queue fans finished notifications out to delivery adapters on a bounded
// worker pool. It implements notifications.Dispatcher.
type Queue struct {
	opts     Options
	adapters []Adapter

	jobs       chan *Job
	results    map[string]*Job
	resultsMux sync.RWMutex

	stateMux sync.RWMutex
	started  bool
	stopped  bool
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// For testing: signals job completion
	jobCompleted chan string
}

// NewQueue creates a delivery queue over adapters
func NewQueue(opts Options, adapters ...Adapter) *Queue {
	opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		opts:         opts,
		adapters:     adapters,
		jobs:         make(chan *Job, opts.Buffer),
		results:      make(map[string]*Job),
		ctx:          ctx,
		cancel:       cancel,
		jobCompleted: make(chan string, opts.Buffer),
	}
}

// AddAdapter registers another adapter. Call before Start.
func (q *Queue) AddAdapter(a Adapter) {
	q.adapters = append(q.adapters, a)
}

// Adapters returns the names of the registered adapters
func (q *Queue) Adapters() []string {
	names := make([]string, len(q.adapters))
	for i, a := range q.adapters {
		names[i] = a.Name()
	}
	return names
}

// Start begins processing jobs with the worker pool
func (q *Queue) Start() {
	q.stateMux.Lock()
	defer q.stateMux.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	logger.Log.Info("Starting delivery queue",
		zap.Int("workers", q.opts.Workers),
		zap.Strings("adapters", q.Adapters()),
	)
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop stops accepting jobs, lets workers drain what is queued and waits
// for them until ctx expires
func (q *Queue) Stop(ctx context.Context) error {
	q.stateMux.Lock()
	if q.stopped {
		q.stateMux.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	q.stateMux.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return fmt.Errorf("delivery queue did not drain: %w", ctx.Err())
	}
}

// Dispatch queues a notification for delivery
func (q *Queue) Dispatch(n *models.Notification, msg notifications.Message) error {
	_, err := q.SubmitJob(n, msg)
	return err
}

// SubmitJob queues a notification and returns the tracked job
func (q *Queue) SubmitJob(n *models.Notification, msg notifications.Message) (*Job, error) {
	job := &Job{
		ID:           uuid.New().String(),
		Notification: n,
		Message:      msg,
		Status:       StatusPending,
		CreatedAt:    time.Now(),
	}

	q.stateMux.RLock()
	defer q.stateMux.RUnlock()
	if q.stopped {
		return nil, ErrQueueStopped
	}

	q.resultsMux.Lock()
	q.results[job.ID] = job
	q.resultsMux.Unlock()

	select {
	case q.jobs <- job:
	default:
		q.resultsMux.Lock()
		delete(q.results, job.ID)
		q.resultsMux.Unlock()
		metrics.RecordDeliveryDropped("queue_full")
		return nil, ErrQueueFull
	}
	metrics.SetQueueDepth(len(q.jobs))
	return job, nil
}

// GetJobStatus returns a copy of a tracked job
func (q *Queue) GetJobStatus(jobID string) (*Job, error) {
	q.resultsMux.RLock()
	defer q.resultsMux.RUnlock()

	job, exists := q.results[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// Depth returns the number of jobs waiting for a worker
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// WaitForJobCompletion waits for a specific job to complete (for testing)
func (q *Queue) WaitForJobCompletion(jobID string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case completedJobID := <-q.jobCompleted:
			if completedJobID == jobID {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for job %s", jobID)
		case <-q.ctx.Done():
			return fmt.Errorf("queue stopped")
		}
	}
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for job := range q.jobs {
		metrics.SetQueueDepth(len(q.jobs))
		q.processJob(workerID, job)
	}
}

// processJob runs every adapter. Each adapter is retried on its own so a
// failing channel never blocks or repeats the others.
func (q *Queue) processJob(workerID int, job *Job) {
	q.updateJobStatus(job.ID, StatusProcessing, 0, nil)

	attempts := 0
	var failures []string
	for _, adapter := range q.adapters {
		n, err := q.deliverWithRetry(adapter, job)
		attempts += n
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", adapter.Name(), err))
			logger.Log.Warn("Notification delivery failed",
				zap.Int("worker_id", workerID),
				zap.String("job_id", job.ID),
				zap.String("notification_id", job.Notification.ID),
				logger.WithAdapter(adapter.Name()),
				zap.Int("attempts", n),
				zap.Error(err),
			)
		}
	}

	if len(failures) > 0 {
		msg := fmt.Sprint(failures)
		q.updateJobStatus(job.ID, StatusFailed, attempts, &msg)
	} else {
		q.updateJobStatus(job.ID, StatusComplete, attempts, nil)
	}
	q.signalCompletion(job.ID)
}

func (q *Queue) deliverWithRetry(adapter Adapter, job *Job) (int, error) {
	var err error
	for attempt := 1; attempt <= q.opts.MaxAttempts; attempt++ {
		start := time.Now()
		ctx, cancel := context.WithTimeout(q.ctx, q.opts.JobTimeout)
		ctx, span := telemetry.TraceDelivery(ctx, adapter.Name(), job.Notification.ID, attempt)
		err = adapter.Deliver(ctx, job)
		telemetry.RecordError(span, err)
		span.End()
		cancel()

		if err == nil {
			metrics.RecordDelivery(adapter.Name(), "ok", time.Since(start))
			return attempt, nil
		}
		if errors.Is(err, ErrPermanent) {
			metrics.RecordDelivery(adapter.Name(), "rejected", time.Since(start))
			return attempt, err
		}
		metrics.RecordDelivery(adapter.Name(), "error", time.Since(start))

		if attempt < q.opts.MaxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * q.opts.RetryDelay):
			case <-q.ctx.Done():
				return attempt, q.ctx.Err()
			}
		}
	}
	return q.opts.MaxAttempts, err
}

func (q *Queue) updateJobStatus(jobID, status string, attempts int, errorMessage *string) {
	q.resultsMux.Lock()
	defer q.resultsMux.Unlock()

	job, exists := q.results[jobID]
	if !exists {
		return
	}

	job.Status = status
	job.Attempts = attempts
	job.ErrorMessage = errorMessage

	if status == StatusComplete || status == StatusFailed {
		now := time.Now()
		job.CompletedAt = &now
		if !q.opts.KeepResults {
			delete(q.results, jobID)
		}
	}
}

// signalCompletion signals that a job has completed (for testing)
func (q *Queue) signalCompletion(jobID string) {
	select {
	case q.jobCompleted <- jobID:
	default:
		// Channel full, don't block
	}
}
