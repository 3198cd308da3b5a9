package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/scheduling"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

type moduleAssignmentReader interface {
	ListActiveByClassGroup(ctx context.Context, classGroupID string) ([]models.ModuleAssignment, error)
	FindByID(ctx context.Context, id string) (*models.ModuleAssignment, error)
}

// AvailabilitySource lists a trainer's availability windows overlapping [from, to).
type AvailabilitySource interface {
	ListByTrainer(ctx context.Context, trainerID string, from, to time.Time) ([]models.AvailabilityWindow, error)
}

type conflictFinder interface {
	FindConflicts(ctx context.Context, filter models.ConflictFilter) ([]models.Lesson, error)
}

type lessonWriter interface {
	conflictFinder
	Create(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error
}

const timeLayout = "2006-01-02 15:04"

// lessonChecker holds the placement rules shared by the generator and manual booking.
type lessonChecker struct {
	availability AvailabilitySource
	lessons      conflictFinder
}

// check validates one interval for a module: configuration, trainer
// availability, then room, trainer and class group exclusivity. The first
// failing rule is returned as a typed error; store failures come back wrapped
// as ErrInternal.
func (c lessonChecker) check(ctx context.Context, module models.ModuleAssignment, iv scheduling.Interval) error {
	if !module.Configured() {
		return appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("module %s has no trainer or room assigned", module.Label()))
	}
	covered, err := c.covered(ctx, module.Trainer(), iv)
	if err != nil {
		return err
	}
	if !covered {
		return appErrors.Clone(appErrors.ErrAvailability, fmt.Sprintf("trainer %s has no availability covering %s to %s",
			module.Trainer(), iv.Start.Format(timeLayout), iv.End.Format(timeLayout)))
	}
	for _, filter := range conflictFilters(module, iv) {
		conflict, err := c.firstConflict(ctx, filter)
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflictError(conflict)
		}
	}
	return nil
}

// covered reports whether a single availability window contains iv.
func (c lessonChecker) covered(ctx context.Context, trainerID string, iv scheduling.Interval) (bool, error) {
	windows, err := c.availability.ListByTrainer(ctx, trainerID, iv.Start, iv.End)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainer availability")
	}
	for _, w := range windows {
		if scheduling.Contains(scheduling.Interval{Start: w.StartsAt, End: w.EndsAt}, iv) {
			return true, nil
		}
	}
	return false, nil
}

type dimensionFilter struct {
	dimension  string
	resourceID string
	filter     models.ConflictFilter
}

func conflictFilters(module models.ModuleAssignment, iv scheduling.Interval) []dimensionFilter {
	base := models.ConflictFilter{StartsAt: iv.Start, EndsAt: iv.End}
	room, trainer, group := base, base, base
	room.RoomID = module.Room()
	trainer.TrainerID = module.Trainer()
	group.ClassGroupID = module.ClassGroupID
	return []dimensionFilter{
		{dimension: models.DimensionRoom, resourceID: room.RoomID, filter: room},
		{dimension: models.DimensionTrainer, resourceID: trainer.TrainerID, filter: trainer},
		{dimension: models.DimensionClassGroup, resourceID: group.ClassGroupID, filter: group},
	}
}

func (c lessonChecker) firstConflict(ctx context.Context, f dimensionFilter) (*models.LessonConflict, error) {
	existing, err := c.lessons.FindConflicts(ctx, f.filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lesson conflicts")
	}
	if len(existing) == 0 {
		return nil, nil
	}
	return &models.LessonConflict{
		LessonID:   existing[0].ID,
		Dimension:  f.dimension,
		ResourceID: f.resourceID,
		StartsAt:   existing[0].StartsAt,
		EndsAt:     existing[0].EndsAt,
	}, nil
}

func conflictError(conflict *models.LessonConflict) *appErrors.Error {
	cause := &models.LessonConflictError{Conflict: *conflict}
	return appErrors.Wrap(cause, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, cause.Error())
}

// isRejection reports whether err is a placement rule failure rather than a store failure.
func isRejection(err error) bool {
	return errors.Is(err, appErrors.ErrConfiguration) ||
		errors.Is(err, appErrors.ErrAvailability) ||
		errors.Is(err, appErrors.ErrConflict) ||
		errors.Is(err, appErrors.ErrBudgetExceeded) ||
		errors.Is(err, appErrors.ErrValidation)
}
