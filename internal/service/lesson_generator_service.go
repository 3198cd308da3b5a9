package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/scheduling"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/lock"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// LessonGeneratorConfig governs the day loop.
type LessonGeneratorConfig struct {
	MaxDays          int
	PoolSize         int
	DailyBudgetHours float64
	// Seed feeds tie shuffling; zero seeds from the clock.
	Seed        int64
	Diagnostics bool
	// MaxReportedSkips bounds the skipped days kept in a run report.
	MaxReportedSkips int
}

const (
	defaultMaxDays          = 600
	defaultPoolSize         = 5
	diagnosedCandidates     = 3
	defaultMaxReportedSkips = 30
	lockKeyPrefix           = "lesson-generation:"
)

// LessonGeneratorService places lessons day by day until every module of a
// class group reaches its planned hours.
type LessonGeneratorService struct {
	modules moduleAssignmentReader
	lessons lessonWriter
	checker lessonChecker
	// diagnostics serves the read-only skipped-day explanations; placement always reads checker.availability.
	diagnostics AvailabilitySource
	windows     *scheduling.WindowCalculator
	locker      lock.Locker
	tx          txProvider
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         LessonGeneratorConfig

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewLessonGeneratorService wires the generator. A nil locker falls back to
// an in-process one and a nil tx provider writes lessons without a transaction.
func NewLessonGeneratorService(
	modules moduleAssignmentReader,
	availability AvailabilitySource,
	lessons lessonWriter,
	windows *scheduling.WindowCalculator,
	locker lock.Locker,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg LessonGeneratorConfig,
) *LessonGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if windows == nil {
		windows = scheduling.NewWindowCalculator(nil)
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = defaultMaxDays
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.DailyBudgetHours <= 0 {
		cfg.DailyBudgetHours = scheduling.DailyTeachingHours
	}
	if cfg.MaxReportedSkips <= 0 {
		cfg.MaxReportedSkips = defaultMaxReportedSkips
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LessonGeneratorService{
		modules:     modules,
		lessons:     lessons,
		checker:     lessonChecker{availability: availability, lessons: lessons},
		diagnostics: availability,
		windows:     windows,
		locker:      locker,
		tx:          tx,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// UseDiagnosticsAvailability routes skipped-day diagnostics through src,
// typically a cache. Placement checks keep querying the source given to the constructor.
func (s *LessonGeneratorService) UseDiagnosticsAvailability(src AvailabilitySource) {
	if src != nil {
		s.diagnostics = src
	}
}

// Validate checks a generation payload without running it.
func (s *LessonGeneratorService) Validate(req dto.GenerateLessonsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson generation payload")
	}
	return nil
}

// Generate runs the scheduler for one class group while holding its
// generation lease. On RunLimitExceeded the partial report is returned with
// the error.
func (s *LessonGeneratorService) Generate(ctx context.Context, req dto.GenerateLessonsRequest) (*dto.GenerateResult, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startDate must use YYYY-MM-DD")
	}

	lease, err := s.locker.Acquire(ctx, lockKeyPrefix+req.ClassGroupID)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, appErrors.Clone(appErrors.ErrLocked, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire generation lock")
	}
	defer func() {
		if releaseErr := lease.Release(context.Background()); releaseErr != nil {
			s.logger.Warn("failed to release generation lock", zap.String("class_group_id", req.ClassGroupID), zap.Error(releaseErr))
		}
	}()

	began := time.Now()
	result, err := s.run(lease.Context(), req.ClassGroupID, start, models.Regime(req.Regime))
	s.observe(result, err, time.Since(began))
	return result, err
}

func (s *LessonGeneratorService) run(ctx context.Context, classGroupID string, start time.Time, regime models.Regime) (*dto.GenerateResult, error) {
	log := s.logger.With(zap.String("class_group_id", classGroupID), zap.String("regime", string(regime)))

	assignments, err := s.modules.ListActiveByClassGroup(ctx, classGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module assignments")
	}
	state := scheduling.NewState(assignments)
	if err := ensureConfigured(state.Unfinished()); err != nil {
		return nil, err
	}

	first := scheduling.DateOf(start)
	result := &dto.GenerateResult{
		ClassGroupID: classGroupID,
		Regime:       regime,
		StartDate:    first.Format("2006-01-02"),
	}

	for iter := 0; !state.Done(); iter++ {
		if iter >= s.cfg.MaxDays {
			result.Remaining = state.RemainingByModule()
			log.Warn("generation stopped at day limit",
				zap.Int("days", s.cfg.MaxDays),
				zap.Int("lessons_created", result.LessonsCreated),
				zap.Any("remaining_hours", result.Remaining))
			return result, appErrors.Clone(appErrors.ErrRunLimitExceeded,
				fmt.Sprintf("stopped after %d days with %d modules unfinished", s.cfg.MaxDays, len(result.Remaining)))
		}
		if err := ctx.Err(); err != nil {
			result.Remaining = state.RemainingByModule()
			if cause := context.Cause(ctx); errors.Is(cause, lock.ErrLost) {
				log.Warn("generation lease lost", zap.Error(cause))
				return result, appErrors.Wrap(cause, appErrors.ErrLocked.Code, appErrors.ErrLocked.Status, "generation lease lost before the run finished")
			}
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generation cancelled")
		}

		date := first.AddDate(0, 0, iter)
		result.DaysIterated++
		result.LastDate = date.Format("2006-01-02")
		if scheduling.IsWeekend(date) {
			continue
		}

		lessons, failure, err := s.scheduleDay(ctx, state, date, regime, log)
		if err != nil {
			result.Remaining = state.RemainingByModule()
			return result, err
		}
		if failure != nil {
			result.DaysSkipped++
			if len(result.SkippedDays) < s.cfg.MaxReportedSkips {
				result.SkippedDays = append(result.SkippedDays, *failure)
			}
			continue
		}
		result.DaysScheduled++
		result.LessonsCreated += len(lessons)
		result.Lessons = append(result.Lessons, lessons...)
	}

	result.Completed = true
	log.Info("generation completed",
		zap.Int("lessons_created", result.LessonsCreated),
		zap.Int("days_scheduled", result.DaysScheduled),
		zap.Int("days_skipped", result.DaysSkipped))
	return result, nil
}

// scheduleDay tries ranked candidates for one working day and commits the
// first one whose every segment validates. Otherwise the day is reported as skipped.
func (s *LessonGeneratorService) scheduleDay(ctx context.Context, state *scheduling.State, date time.Time, regime models.Regime, log *zap.Logger) ([]models.Lesson, *dto.DayFailure, error) {
	window, err := s.windows.ForDate(date, regime)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid regime")
	}
	budget := s.cfg.DailyBudgetHours
	if teaching := window.TeachingHours(); teaching < budget {
		budget = teaching
	}

	candidates := scheduling.BuildCandidates(state.ActivePool(s.cfg.PoolSize), state)
	s.rank(candidates)

	plans := make([]scheduling.DayPlan, 0, len(candidates))
	for _, candidate := range candidates {
		plan := scheduling.PlanDay(candidate, window, budget)
		if plan.Empty() {
			continue
		}
		plans = append(plans, plan)

		err := s.validatePlan(ctx, state, plan, window)
		if err != nil {
			if isRejection(err) {
				continue
			}
			return nil, nil, err
		}
		lessons, err := s.commit(ctx, state, plan)
		if err != nil {
			return nil, nil, err
		}
		return lessons, nil, nil
	}

	failure := &dto.DayFailure{Date: date.Format("2006-01-02")}
	if s.cfg.Diagnostics {
		failure.Reasons = s.diagnose(ctx, plans, window)
		for _, reason := range failure.Reasons {
			log.Info("candidate rejected",
				zap.String("date", failure.Date),
				zap.String("candidate", reason.Candidate),
				zap.String("kind", reason.Kind),
				zap.String("dimension", reason.Dimension),
				zap.String("resource_id", reason.ResourceID),
				zap.String("reason", reason.Reason))
		}
	}
	log.Info("no candidate fits day", zap.String("date", failure.Date), zap.Int("candidates", len(plans)))
	return nil, failure, nil
}

// validatePlan checks the whole plan before anything is written: budgets
// first, then every segment against the window and the placement rules.
func (s *LessonGeneratorService) validatePlan(ctx context.Context, state *scheduling.State, plan scheduling.DayPlan, window scheduling.DayWindow) error {
	for _, placement := range plan.Placements {
		if hours, remaining := placement.Hours(), state.Remaining(placement.Module.ID()); hours > remaining+1e-6 {
			return appErrors.Clone(appErrors.ErrBudgetExceeded,
				fmt.Sprintf("module %s has %.4f hours left, plan books %.4f", placement.Module.Assignment.Label(), remaining, hours))
		}
	}
	for _, placement := range plan.Placements {
		for _, segment := range placement.Segments {
			if !window.Admits(segment) {
				return appErrors.Clone(appErrors.ErrValidation, "segment outside the work window")
			}
			if err := s.checker.check(ctx, placement.Module.Assignment, segment); err != nil {
				return err
			}
		}
	}
	return nil
}

// commit writes every segment of the plan, inside one transaction when a
// provider is configured, then books the hours against the run state.
func (s *LessonGeneratorService) commit(ctx context.Context, state *scheduling.State, plan scheduling.DayPlan) (lessons []models.Lesson, err error) {
	var exec sqlx.ExtContext
	var tx *sqlx.Tx
	if s.tx != nil {
		tx, err = s.tx.BeginTxx(ctx, nil)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
		}
		exec = tx
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()
	}

	for _, placement := range plan.Placements {
		for _, segment := range placement.Segments {
			lesson := models.Lesson{
				ModuleAssignmentID: placement.Module.ID(),
				StartsAt:           segment.Start,
				EndsAt:             segment.End,
				ClassGroupID:       placement.Module.Assignment.ClassGroupID,
				TrainerID:          placement.Module.Assignment.TrainerID,
				RoomID:             placement.Module.Assignment.RoomID,
			}
			if err = s.lessons.Create(ctx, exec, &lesson); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
			}
			lessons = append(lessons, lesson)
		}
	}
	if tx != nil {
		if err = tx.Commit(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit lessons")
		}
	}

	used := make([]string, 0, len(plan.Placements))
	for _, placement := range plan.Placements {
		if err := state.Commit(placement.Module.ID(), placement.Hours()); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "module budget out of sync")
		}
		used = append(used, placement.Module.ID())
	}
	state.EndDay(used)
	return lessons, nil
}

// diagnose re-checks the best ranked candidates of a failed day and reports
// every rule each segment breaks. It only reads from the stores.
func (s *LessonGeneratorService) diagnose(ctx context.Context, plans []scheduling.DayPlan, window scheduling.DayWindow) []dto.CandidateFailure {
	var out []dto.CandidateFailure
	for i, plan := range plans {
		if i == diagnosedCandidates {
			break
		}
		key := plan.Candidate.Key()
		for _, placement := range plan.Placements {
			module := placement.Module.Assignment
			for _, segment := range placement.Segments {
				base := dto.CandidateFailure{Candidate: key, ModuleID: module.ID, StartsAt: segment.Start, EndsAt: segment.End}
				out = append(out, s.explainSegment(ctx, base, module, segment, window)...)
			}
		}
	}
	return out
}

func (s *LessonGeneratorService) explainSegment(ctx context.Context, base dto.CandidateFailure, module models.ModuleAssignment, segment scheduling.Interval, window scheduling.DayWindow) []dto.CandidateFailure {
	var out []dto.CandidateFailure
	add := func(kind, dimension, resource, reason string) {
		f := base
		f.Kind, f.Dimension, f.ResourceID, f.Reason = kind, dimension, resource, reason
		out = append(out, f)
	}

	if !window.Admits(segment) {
		add(dto.FailureWindow, "", "", "segment outside the work window")
	}
	if !module.Configured() {
		add(dto.FailureConfiguration, "", "", fmt.Sprintf("module %s has no trainer or room assigned", module.Label()))
		return out
	}

	dayWindows, err := s.diagnostics.ListByTrainer(ctx, module.Trainer(), window.WorkStart, window.WorkEnd)
	switch {
	case err != nil:
		s.logger.Warn("diagnostics could not load availability", zap.String("trainer_id", module.Trainer()), zap.Error(err))
	case len(dayWindows) == 0:
		add(dto.FailureAvailability, models.DimensionTrainer, module.Trainer(), "trainer has no availability on this day")
	default:
		covered := false
		spans := make([]string, 0, len(dayWindows))
		for _, w := range dayWindows {
			iv := scheduling.Interval{Start: w.StartsAt, End: w.EndsAt}
			covered = covered || scheduling.Contains(iv, segment)
			spans = append(spans, fmt.Sprintf("%s-%s", w.StartsAt.Format("15:04"), w.EndsAt.Format("15:04")))
		}
		if !covered {
			add(dto.FailureAvailability, models.DimensionTrainer, module.Trainer(),
				fmt.Sprintf("trainer availability %s does not cover the segment", strings.Join(spans, ", ")))
		}
	}

	for _, f := range conflictFilters(module, segment) {
		conflict, err := s.checker.firstConflict(ctx, f)
		if err != nil {
			s.logger.Warn("diagnostics could not check conflicts", zap.String("dimension", f.dimension), zap.Error(err))
			continue
		}
		if conflict != nil {
			add(dto.FailureConflict, f.dimension, f.resourceID, (&models.LessonConflictError{Conflict: *conflict}).Error())
		}
	}
	return out
}

func (s *LessonGeneratorService) observe(result *dto.GenerateResult, err error, elapsed time.Duration) {
	outcome := "completed"
	switch {
	case errors.Is(err, appErrors.ErrRunLimitExceeded):
		outcome = "run_limit"
	case errors.Is(err, appErrors.ErrLocked):
		outcome = "locked"
	case errors.Is(err, appErrors.ErrConfiguration):
		outcome = "configuration"
	case err != nil:
		outcome = "error"
	}
	var created, skipped int
	if result != nil {
		created, skipped = result.LessonsCreated, result.DaysSkipped
	}
	s.metrics.ObserveGeneration(outcome, created, skipped, elapsed)
}

// rank orders candidates; runs share one seeded source, so shuffling is serialised.
func (s *LessonGeneratorService) rank(candidates []scheduling.Candidate) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	scheduling.Rank(candidates, s.rng)
}

func ensureConfigured(pool []*scheduling.ModuleBudget) error {
	var missing []string
	for _, b := range pool {
		if !b.Assignment.Configured() {
			missing = append(missing, b.Assignment.Label())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return appErrors.Clone(appErrors.ErrConfiguration,
		fmt.Sprintf("modules without trainer or room: %s", strings.Join(missing, ", ")))
}
