package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/scheduling"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

type lessonStore interface {
	lessonWriter
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	ListByClassGroup(ctx context.Context, classGroupID string) ([]models.Lesson, error)
	Delete(ctx context.Context, id string) error
	DeleteByClassGroup(ctx context.Context, classGroupID string) (int64, error)
}

// LessonServiceConfig bounds manual bookings.
type LessonServiceConfig struct {
	MaxLessonHours float64
}

const defaultMaxLessonHours = 3.0

// LessonService books single lessons by hand and manages existing lessons.
type LessonService struct {
	modules   moduleAssignmentReader
	lessons   lessonStore
	checker   lessonChecker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       LessonServiceConfig
}

// NewLessonService constructs the service.
func NewLessonService(modules moduleAssignmentReader, availability AvailabilitySource, lessons lessonStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg LessonServiceConfig) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxLessonHours <= 0 {
		cfg.MaxLessonHours = defaultMaxLessonHours
	}
	return &LessonService{
		modules:   modules,
		lessons:   lessons,
		checker:   lessonChecker{availability: availability, lessons: lessons},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Create validates and books one lesson. Checks run in order: duration,
// module configuration, trainer availability, room/trainer/class group
// conflicts, then the module hour budget.
func (s *LessonService) Create(ctx context.Context, req dto.CreateLessonRequest) (*models.Lesson, error) {
	lesson, err := s.create(ctx, req)
	s.metrics.ObserveManualLesson(manualOutcome(err))
	return lesson, err
}

func (s *LessonService) create(ctx context.Context, req dto.CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	iv := scheduling.Interval{Start: req.Start.UTC(), End: req.End.UTC()}
	hours := iv.Hours()
	if hours <= 0 {
		return nil, appErrors.Clone(appErrors.ErrDurationLimit, "lesson end must be after its start")
	}
	if hours > s.cfg.MaxLessonHours {
		return nil, appErrors.Clone(appErrors.ErrDurationLimit,
			fmt.Sprintf("lesson lasts %.2f hours, the limit is %.0f", hours, s.cfg.MaxLessonHours))
	}

	module, err := s.modules.FindByID(ctx, req.ModuleAssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module assignment")
	}
	if err := s.checker.check(ctx, *module, iv); err != nil {
		return nil, err
	}
	if remaining := module.PlannedHours - module.ScheduledHours; hours > remaining+1e-6 {
		return nil, appErrors.Clone(appErrors.ErrBudgetExceeded,
			fmt.Sprintf("module %s has %.2f of %.2f planned hours left", module.Label(), remaining, module.PlannedHours))
	}

	lesson := &models.Lesson{
		ModuleAssignmentID: module.ID,
		StartsAt:           iv.Start,
		EndsAt:             iv.End,
		ClassGroupID:       module.ClassGroupID,
		TrainerID:          module.TrainerID,
		RoomID:             module.RoomID,
	}
	if err := s.lessons.Create(ctx, nil, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	s.logger.Info("lesson booked",
		zap.String("lesson_id", lesson.ID),
		zap.String("module_assignment_id", module.ID),
		zap.Time("starts_at", lesson.StartsAt),
		zap.Float64("hours", hours))
	return lesson, nil
}

// ListByClassGroup returns a class group's lessons in time order.
func (s *LessonService) ListByClassGroup(ctx context.Context, classGroupID string) ([]models.Lesson, error) {
	if classGroupID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class group id is required")
	}
	lessons, err := s.lessons.ListByClassGroup(ctx, classGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

// Delete removes one lesson.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	if err := s.lessons.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	return nil
}

// Clear removes every lesson of a class group.
func (s *LessonService) Clear(ctx context.Context, classGroupID string) (*dto.ClearLessonsResponse, error) {
	if classGroupID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class group id is required")
	}
	deleted, err := s.lessons.DeleteByClassGroup(ctx, classGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear lessons")
	}
	s.logger.Info("class group lessons cleared", zap.String("class_group_id", classGroupID), zap.Int64("deleted", deleted))
	return &dto.ClearLessonsResponse{ClassGroupID: classGroupID, Deleted: deleted}, nil
}

func manualOutcome(err error) string {
	if err == nil {
		return "created"
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrDurationLimit.Code:
		return "duration_limit"
	case appErrors.ErrConfiguration.Code:
		return "configuration"
	case appErrors.ErrAvailability.Code:
		return "availability"
	case appErrors.ErrConflict.Code:
		return "conflict"
	case appErrors.ErrBudgetExceeded.Code:
		return "budget"
	case appErrors.ErrValidation.Code, appErrors.ErrNotFound.Code:
		return "invalid"
	default:
		return "error"
	}
}
