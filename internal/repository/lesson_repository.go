package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// LessonRepository persists lessons and answers overlap queries.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

func (r *LessonRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const lessonSelect = `SELECT l.id, l.class_group_module_id, l.starts_at, l.ends_at, l.created_at,
    cgm.class_group_id, cgm.trainer_id, cgm.room_id
FROM lessons l
JOIN class_group_modules cgm ON cgm.id = l.class_group_module_id`

// FindConflicts returns lessons overlapping [StartsAt, EndsAt) that share
// every resource set on the filter.
func (r *LessonRepository) FindConflicts(ctx context.Context, filter models.ConflictFilter) ([]models.Lesson, error) {
	if filter.RoomID == "" && filter.TrainerID == "" && filter.ClassGroupID == "" {
		return nil, errors.New("find conflicting lessons: at least one resource filter is required")
	}
	args := []interface{}{filter.EndsAt, filter.StartsAt}
	conditions := []string{"l.starts_at < $1", "l.ends_at > $2"}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("cgm.room_id", filter.RoomID)
	add("cgm.trainer_id", filter.TrainerID)
	add("cgm.class_group_id", filter.ClassGroupID)

	query := lessonSelect + ` WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY l.starts_at ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("find conflicting lessons: %w", err)
	}
	return lessons, nil
}

// Create inserts one lesson, assigning id and timestamp when missing.
func (r *LessonRepository) Create(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lessons (id, class_group_module_id, starts_at, ends_at, created_at)
VALUES (:id, :class_group_module_id, :starts_at, :ends_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// FindByID loads a lesson with its derived resources.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := lessonSelect + ` WHERE l.id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListByClassGroup returns a class group's lessons in time order.
func (r *LessonRepository) ListByClassGroup(ctx context.Context, classGroupID string) ([]models.Lesson, error) {
	query := lessonSelect + ` WHERE cgm.class_group_id = $1 ORDER BY l.starts_at ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, classGroupID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// Delete removes a single lesson.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM lessons WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("lesson rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByClassGroup removes every lesson of a class group and reports how many were deleted.
func (r *LessonRepository) DeleteByClassGroup(ctx context.Context, classGroupID string) (int64, error) {
	const query = `DELETE FROM lessons WHERE class_group_module_id IN (
    SELECT id FROM class_group_modules WHERE class_group_id = $1)`
	result, err := r.db.ExecContext(ctx, query, classGroupID)
	if err != nil {
		return 0, fmt.Errorf("clear class group lessons: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("lesson rows affected: %w", err)
	}
	return affected, nil
}
