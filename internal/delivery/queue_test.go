package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Butonix/localhub/internal/models"
	"github.com/Butonix/localhub/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAdapter fails the first failures calls with err
type scriptedAdapter struct {
	name     string
	failures int
	err      error

	mu    sync.Mutex
	calls int
	jobs  []*Job
}

func (a *scriptedAdapter) Name() string { return a.name }

func (a *scriptedAdapter) Deliver(_ context.Context, job *Job) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.calls <= a.failures {
		return a.err
	}
	a.jobs = append(a.jobs, job)
	return nil
}

func (a *scriptedAdapter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func testNotification(id string) *models.Notification {
	return &models.Notification{
		ID:          id,
		RecipientID: "user-1",
		CommunityID: "community-1",
		ActorID:     "user-2",
		Verb:        notifications.VerbMention,
		SubjectKind: string(notifications.KindPost),
		SubjectID:   "activity-1",
	}
}

func fastOptions() Options {
	return Options{Workers: 2, Buffer: 10, MaxAttempts: 3, RetryDelay: time.Millisecond, KeepResults: true}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := NewQueue(Options{Buffer: 1})

	_, err := q.SubmitJob(testNotification("n1"), notifications.Message{})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Depth())

	_, err = q.SubmitJob(testNotification("n2"), notifications.Message{})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, q.Depth())
}

func TestQueueRejectsAfterStop(t *testing.T) {
	q := NewQueue(fastOptions())
	q.Start()
	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Stop(context.Background()))

	err := q.Dispatch(testNotification("n1"), notifications.Message{})
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestQueueRetriesTransientFailures(t *testing.T) {
	flaky := &scriptedAdapter{name: "flaky", failures: 2, err: errors.New("connection reset")}
	q := NewQueue(fastOptions(), flaky)
	q.Start()
	defer func() { _ = q.Stop(context.Background()) }()

	job, err := q.SubmitJob(testNotification("n1"), notifications.Message{Header: "hi"})
	require.NoError(t, err)
	require.NoError(t, q.WaitForJobCompletion(job.ID, 2*time.Second))

	status, err := q.GetJobStatus(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, status.Status)
	assert.Equal(t, 3, status.Attempts)
	assert.NotNil(t, status.CompletedAt)
	assert.Equal(t, 3, flaky.count())
}

func TestQueueDoesNotRetryPermanentFailures(t *testing.T) {
	broken := &scriptedAdapter{name: "broken", failures: 10, err: fmt.Errorf("%w: bad payload", ErrPermanent)}
	healthy := &scriptedAdapter{name: "healthy"}
	q := NewQueue(fastOptions(), broken, healthy)
	assert.Equal(t, []string{"broken", "healthy"}, q.Adapters())
	q.Start()
	defer func() { _ = q.Stop(context.Background()) }()

	job, err := q.SubmitJob(testNotification("n1"), notifications.Message{})
	require.NoError(t, err)
	require.NoError(t, q.WaitForJobCompletion(job.ID, 2*time.Second))

	status, err := q.GetJobStatus(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status.Status)
	require.NotNil(t, status.ErrorMessage)
	assert.Contains(t, *status.ErrorMessage, "broken")
	assert.Equal(t, 1, broken.count())
	assert.Equal(t, 1, healthy.count(), "a failing adapter does not block the others")
}

func TestQueueGivesUpAfterMaxAttempts(t *testing.T) {
	down := &scriptedAdapter{name: "down", failures: 10, err: errors.New("timeout")}
	q := NewQueue(fastOptions(), down)
	q.Start()
	defer func() { _ = q.Stop(context.Background()) }()

	job, err := q.SubmitJob(testNotification("n1"), notifications.Message{})
	require.NoError(t, err)
	require.NoError(t, q.WaitForJobCompletion(job.ID, 2*time.Second))

	status, err := q.GetJobStatus(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status.Status)
	assert.Equal(t, 3, down.count())
}

func TestQueueStopDrainsPendingJobs(t *testing.T) {
	sink := &scriptedAdapter{name: "sink"}
	q := NewQueue(fastOptions(), sink)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Dispatch(testNotification(fmt.Sprintf("n%d", i)), notifications.Message{}))
	}
	q.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))
	assert.Equal(t, 5, sink.count())
}

func TestGetJobStatusUnknown(t *testing.T) {
	q := NewQueue(fastOptions())
	_, err := q.GetJobStatus("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
