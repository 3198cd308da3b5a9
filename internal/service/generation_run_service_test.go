package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/jobs"
)

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type generatorStub struct {
	validateErr error
	result      *dto.GenerateResult
	err         error
	calls       int
}

func (g *generatorStub) Validate(req dto.GenerateLessonsRequest) error { return g.validateErr }

func (g *generatorStub) Generate(ctx context.Context, req dto.GenerateLessonsRequest) (*dto.GenerateResult, error) {
	g.calls++
	return g.result, g.err
}

func TestGenerationRunServiceStartQueuesRun(t *testing.T) {
	store := NewGenerationRunStore(time.Hour)
	queue := &queueStub{}
	svc := NewGenerationRunService(store, queue, &generatorStub{}, nil)

	run, err := svc.Start(context.Background(), generateReq("cg-1", "2025-01-06"))
	require.NoError(t, err)
	assert.Equal(t, dto.RunQueued, run.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, run.ID, queue.jobs[0].ID)
	assert.Equal(t, generationJobType, queue.jobs[0].Type)

	stored, err := svc.Status(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "cg-1", stored.ClassGroupID)
}

func TestGenerationRunServiceStartFailures(t *testing.T) {
	store := NewGenerationRunStore(time.Hour)

	invalid := NewGenerationRunService(store, &queueStub{}, &generatorStub{validateErr: appErrors.Clone(appErrors.ErrValidation, "bad")}, nil)
	_, err := invalid.Start(context.Background(), generateReq("cg-1", "2025-01-06"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	broken := NewGenerationRunService(store, &queueStub{err: errors.New("queue stopped")}, &generatorStub{}, nil)
	_, err = broken.Start(context.Background(), generateReq("cg-1", "2025-01-06"))
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, store.items)

	_, err = broken.Status(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestGenerationWorkerCompletesRun(t *testing.T) {
	store := NewGenerationRunStore(time.Hour)
	store.Save(dto.GenerationRun{ID: "run-1", Status: dto.RunQueued, QueuedAt: time.Now()})
	gen := &generatorStub{result: &dto.GenerateResult{LessonsCreated: 4, Completed: true}}
	worker := NewGenerationWorker(store, gen, 2, nil)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "run-1", Payload: generateReq("cg-1", "2025-01-06")}))

	run, ok := store.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, dto.RunCompleted, run.Status)
	assert.Equal(t, 4, run.Result.LessonsCreated)
	assert.Equal(t, 1, run.Attempts)
	assert.NotNil(t, run.StartedAt)
	assert.NotNil(t, run.FinishedAt)
}

func TestGenerationWorkerRunLimitIsPermanent(t *testing.T) {
	store := NewGenerationRunStore(time.Hour)
	store.Save(dto.GenerationRun{ID: "run-1", Status: dto.RunQueued, QueuedAt: time.Now()})
	gen := &generatorStub{
		result: &dto.GenerateResult{DaysIterated: 600},
		err:    appErrors.Clone(appErrors.ErrRunLimitExceeded, ""),
	}
	worker := NewGenerationWorker(store, gen, 2, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "run-1", Payload: generateReq("cg-1", "2025-01-06")})
	require.Error(t, err)
	assert.True(t, jobs.IsPermanent(err))

	run, _ := store.Get("run-1")
	assert.Equal(t, dto.RunFailed, run.Status)
	assert.Equal(t, appErrors.ErrRunLimitExceeded.Code, run.ErrorCode)
	assert.Equal(t, 600, run.Result.DaysIterated)
}

func TestGenerationWorkerRetriesStoreFailures(t *testing.T) {
	store := NewGenerationRunStore(time.Hour)
	store.Save(dto.GenerationRun{ID: "run-1", Status: dto.RunQueued, QueuedAt: time.Now()})
	gen := &generatorStub{err: appErrors.Wrap(errors.New("db down"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed")}
	worker := NewGenerationWorker(store, gen, 1, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "run-1", Attempt: 0, Payload: generateReq("cg-1", "2025-01-06")})
	require.Error(t, err)
	assert.False(t, jobs.IsPermanent(err))
	run, _ := store.Get("run-1")
	assert.Equal(t, dto.RunQueued, run.Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "run-1", Attempt: 1, Payload: generateReq("cg-1", "2025-01-06")})
	require.Error(t, err)
	run, _ = store.Get("run-1")
	assert.Equal(t, dto.RunFailed, run.Status)
	assert.Equal(t, 2, run.Attempts)
}

func TestGenerationWorkerRejectsMalformedPayload(t *testing.T) {
	store := NewGenerationRunStore(time.Hour)
	store.Save(dto.GenerationRun{ID: "run-1", Status: dto.RunQueued, QueuedAt: time.Now()})
	worker := NewGenerationWorker(store, &generatorStub{}, 1, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "run-1", Payload: "nope"})
	assert.True(t, jobs.IsPermanent(err))
	run, _ := store.Get("run-1")
	assert.Equal(t, dto.RunFailed, run.Status)
}

func TestGenerationRunStoreExpiresFinishedRuns(t *testing.T) {
	store := NewGenerationRunStore(time.Minute)
	old := time.Now().Add(-2 * time.Minute)
	store.Save(dto.GenerationRun{ID: "done", Status: dto.RunCompleted, FinishedAt: &old})
	store.Save(dto.GenerationRun{ID: "pending", Status: dto.RunQueued, QueuedAt: old})

	_, ok := store.Get("done")
	assert.False(t, ok)
	_, ok = store.Get("pending")
	assert.True(t, ok)
	assert.False(t, store.Update("done", func(*dto.GenerationRun) {}))
}

func TestGenerationRunStoreSweepsUnpolledRuns(t *testing.T) {
	store := NewGenerationRunStore(time.Minute)
	finished := time.Now().Add(-time.Hour)
	for i := 0; i < 1000; i++ {
		store.Save(dto.GenerationRun{ID: fmt.Sprintf("done-%d", i), Status: dto.RunCompleted, FinishedAt: &finished})
	}
	store.Save(dto.GenerationRun{ID: "stuck", Status: dto.RunRunning, QueuedAt: time.Now().Add(-25 * time.Hour)})
	store.Save(dto.GenerationRun{ID: "fresh", Status: dto.RunQueued, QueuedAt: time.Now()})

	assert.Equal(t, 1, store.Len())
	_, ok := store.Get("fresh")
	assert.True(t, ok)
}

func TestGenerationRunStoreExpiresStuckRuns(t *testing.T) {
	store := NewGenerationRunStore(time.Minute)
	store.Save(dto.GenerationRun{ID: "stuck", Status: dto.RunQueued, QueuedAt: time.Now().Add(-25 * time.Hour)})

	_, ok := store.Get("stuck")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}
