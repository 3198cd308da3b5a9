package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// ModuleAssignmentRepository reads class group curricula.
type ModuleAssignmentRepository struct {
	db *sqlx.DB
}

// NewModuleAssignmentRepository constructs the repository.
func NewModuleAssignmentRepository(db *sqlx.DB) *ModuleAssignmentRepository {
	return &ModuleAssignmentRepository{db: db}
}

const moduleAssignmentSelect = `SELECT cgm.id, cgm.class_group_id, cgm.module_id, COALESCE(m.name, '') AS module_name,
    cgm.trainer_id, cgm.room_id, cgm.planned_hours, cgm.sequence, cgm.created_at,
    COALESCE(SUM(EXTRACT(EPOCH FROM (l.ends_at - l.starts_at))) / 3600.0, 0) AS scheduled_hours
FROM class_group_modules cgm
LEFT JOIN modules m ON m.id = cgm.module_id
LEFT JOIN lessons l ON l.class_group_module_id = cgm.id`

// ListActiveByClassGroup returns the active modules of a class group in
// curriculum order with the hours already booked for each.
func (r *ModuleAssignmentRepository) ListActiveByClassGroup(ctx context.Context, classGroupID string) ([]models.ModuleAssignment, error) {
	const query = moduleAssignmentSelect + `
WHERE cgm.class_group_id = $1 AND cgm.archived_at IS NULL
GROUP BY cgm.id, m.name
ORDER BY cgm.sequence ASC, cgm.created_at ASC`
	var items []models.ModuleAssignment
	if err := r.db.SelectContext(ctx, &items, query, classGroupID); err != nil {
		return nil, fmt.Errorf("list module assignments: %w", err)
	}
	return items, nil
}

// FindByID returns one module assignment with its scheduled hours.
func (r *ModuleAssignmentRepository) FindByID(ctx context.Context, id string) (*models.ModuleAssignment, error) {
	const query = moduleAssignmentSelect + `
WHERE cgm.id = $1
GROUP BY cgm.id, m.name`
	var item models.ModuleAssignment
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}
