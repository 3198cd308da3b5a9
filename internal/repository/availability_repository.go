package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// AvailabilityRepository reads trainer availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByTrainer returns the trainer's windows ordered by start. Zero bounds
// leave that side of the range open; otherwise only windows intersecting
// [from, to) are returned.
func (r *AvailabilityRepository) ListByTrainer(ctx context.Context, trainerID string, from, to time.Time) ([]models.AvailabilityWindow, error) {
	var (
		conditions = []string{"trainer_id = $1"}
		args       = []interface{}{trainerID}
	)
	if !to.IsZero() {
		args = append(args, to)
		conditions = append(conditions, fmt.Sprintf("starts_at < $%d", len(args)))
	}
	if !from.IsZero() {
		args = append(args, from)
		conditions = append(conditions, fmt.Sprintf("ends_at > $%d", len(args)))
	}

	query := `SELECT id, trainer_id, starts_at, ends_at, mode FROM trainer_availability WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY starts_at ASC`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, args...); err != nil {
		return nil, fmt.Errorf("list trainer availability: %w", err)
	}
	return windows, nil
}
