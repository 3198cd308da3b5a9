package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/jobs"
)

const generationJobType = "lesson-generation"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type lessonGenerator interface {
	Validate(req dto.GenerateLessonsRequest) error
	Generate(ctx context.Context, req dto.GenerateLessonsRequest) (*dto.GenerateResult, error)
}

// staleRunAge bounds how long a queued or running run is kept when no worker reports back.
const staleRunAge = 24 * time.Hour

// GenerationRunStore keeps asynchronous runs in memory until they expire.
type GenerationRunStore struct {
	ttl   time.Duration
	stale time.Duration
	mu    sync.RWMutex
	items map[string]dto.GenerationRun
}

// NewGenerationRunStore builds a store whose finished runs expire after ttl.
// Unfinished runs expire once they were queued longer than a day ago, or ttl if that is longer.
func NewGenerationRunStore(ttl time.Duration) *GenerationRunStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	stale := staleRunAge
	if ttl > stale {
		stale = ttl
	}
	return &GenerationRunStore{ttl: ttl, stale: stale, items: make(map[string]dto.GenerationRun)}
}

func (s *GenerationRunStore) expired(run dto.GenerationRun, now time.Time) bool {
	if run.FinishedAt != nil {
		return now.Sub(*run.FinishedAt) > s.ttl
	}
	return now.Sub(run.QueuedAt) > s.stale
}

// Save stores or replaces a run and drops every expired one.
func (s *GenerationRunStore) Save(run dto.GenerationRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, existing := range s.items {
		if s.expired(existing, now) {
			delete(s.items, id)
		}
	}
	s.items[run.ID] = run
}

// Get returns a run unless it has expired.
func (s *GenerationRunStore) Get(id string) (dto.GenerationRun, bool) {
	s.mu.RLock()
	run, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return dto.GenerationRun{}, false
	}
	if s.expired(run, time.Now()) {
		s.Delete(id)
		return dto.GenerationRun{}, false
	}
	return run, true
}

// Len reports how many runs are held, expired or not.
func (s *GenerationRunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Update applies fn to a stored run.
func (s *GenerationRunStore) Update(id string, fn func(*dto.GenerationRun)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.items[id]
	if !ok {
		return false
	}
	fn(&run)
	s.items[id] = run
	return true
}

// Delete drops a run.
func (s *GenerationRunStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// GenerationRunService queues generation requests and reports their progress.
type GenerationRunService struct {
	store     *GenerationRunStore
	queue     jobDispatcher
	generator lessonGenerator
	logger    *zap.Logger
}

// NewGenerationRunService constructs the service.
func NewGenerationRunService(store *GenerationRunStore, queue jobDispatcher, generator lessonGenerator, logger *zap.Logger) *GenerationRunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationRunService{store: store, queue: queue, generator: generator, logger: logger}
}

// Start validates the request, records a queued run and hands it to the worker queue.
func (s *GenerationRunService) Start(ctx context.Context, req dto.GenerateLessonsRequest) (*dto.GenerationRun, error) {
	if err := s.generator.Validate(req); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "generation queue unavailable")
	}
	run := dto.GenerationRun{
		ID:           uuid.NewString(),
		ClassGroupID: req.ClassGroupID,
		StartDate:    req.StartDate,
		Regime:       req.Regime,
		Status:       dto.RunQueued,
		QueuedAt:     time.Now().UTC(),
	}
	s.store.Save(run)
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: generationJobType, Payload: req}); err != nil {
		s.store.Delete(run.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation run")
	}
	s.logger.Info("generation run queued", zap.String("run_id", run.ID), zap.String("class_group_id", run.ClassGroupID))
	return &run, nil
}

// Status returns a stored run.
func (s *GenerationRunService) Status(ctx context.Context, id string) (*dto.GenerationRun, error) {
	run, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found or expired")
	}
	return &run, nil
}

// GenerationWorker executes queued generation runs.
type GenerationWorker struct {
	store      *GenerationRunStore
	generator  lessonGenerator
	maxRetries int
	logger     *zap.Logger
}

// NewGenerationWorker constructs a worker. maxRetries must match the queue's setting.
func NewGenerationWorker(store *GenerationRunStore, generator lessonGenerator, maxRetries int, logger *zap.Logger) *GenerationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &GenerationWorker{store: store, generator: generator, maxRetries: maxRetries, logger: logger}
}

// Handle processes a queue job. Scheduling outcomes that a retry cannot
// change are reported as permanent so the queue does not run them again.
func (w *GenerationWorker) Handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.GenerateLessonsRequest)
	if !ok {
		w.finish(job.ID, nil, appErrors.Clone(appErrors.ErrValidation, "malformed generation job payload"))
		return jobs.Permanent(appErrors.Clone(appErrors.ErrValidation, "malformed generation job payload"))
	}

	started := time.Now().UTC()
	w.store.Update(job.ID, func(run *dto.GenerationRun) {
		run.Status = dto.RunRunning
		run.Attempts = job.Attempt + 1
		run.StartedAt = &started
	})

	result, err := w.generator.Generate(ctx, req)
	if err != nil && retryable(err) && job.Attempt < w.maxRetries {
		w.logger.Warn("generation run failed, will retry", zap.String("run_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		w.store.Update(job.ID, func(run *dto.GenerationRun) {
			run.Status = dto.RunQueued
			run.Error = err.Error()
		})
		return err
	}

	w.finish(job.ID, result, err)
	if err != nil {
		if !retryable(err) {
			return jobs.Permanent(err)
		}
		return err
	}
	return nil
}

func (w *GenerationWorker) finish(id string, result *dto.GenerateResult, err error) {
	finished := time.Now().UTC()
	w.store.Update(id, func(run *dto.GenerationRun) {
		run.Result = result
		run.FinishedAt = &finished
		run.Status = dto.RunCompleted
		run.Error, run.ErrorCode = "", ""
		if err != nil {
			appErr := appErrors.FromError(err)
			run.Status = dto.RunFailed
			run.Error = appErr.Error()
			run.ErrorCode = appErr.Code
		}
	})
	if err != nil {
		w.logger.Warn("generation run failed", zap.String("run_id", id), zap.Error(err))
		return
	}
	w.logger.Info("generation run finished", zap.String("run_id", id), zap.Int("lessons_created", result.LessonsCreated))
}

// retryable reports whether a failed run may succeed when attempted again.
// Only store failures and a held lease qualify.
func retryable(err error) bool {
	code := appErrors.FromError(err).Code
	return code == appErrors.ErrInternal.Code || code == appErrors.ErrLocked.Code
}
