package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var moduleAssignmentColumns = []string{"id", "class_group_id", "module_id", "module_name", "trainer_id", "room_id", "planned_hours", "sequence", "created_at", "scheduled_hours"}

func TestModuleAssignmentRepositoryListActiveByClassGroup(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewModuleAssignmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(moduleAssignmentColumns).
		AddRow("cgm-1", "cg-1", "mod-1", "Networking", "trainer-1", "room-1", 25.0, 1, now, 6.0).
		AddRow("cgm-2", "cg-1", "mod-2", "Databases", nil, "room-1", 50.0, 2, now, 0.0)
	mock.ExpectQuery(`LEFT JOIN lessons l ON l\.class_group_module_id = cgm\.id\s+WHERE cgm\.class_group_id = \$1 AND cgm\.archived_at IS NULL\s+GROUP BY cgm\.id, m\.name\s+ORDER BY cgm\.sequence ASC`).
		WithArgs("cg-1").
		WillReturnRows(rows)

	items, err := repo.ListActiveByClassGroup(context.Background(), "cg-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 6.0, items[0].ScheduledHours)
	assert.True(t, items[0].Configured())
	assert.Nil(t, items[1].TrainerID)
	assert.False(t, items[1].Configured())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModuleAssignmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewModuleAssignmentRepository(db)

	mock.ExpectQuery(`WHERE cgm\.id = \$1`).
		WithArgs("cgm-1").
		WillReturnRows(sqlmock.NewRows(moduleAssignmentColumns).
			AddRow("cgm-1", "cg-1", "mod-1", "Networking", "trainer-1", "room-1", 25.0, 1, time.Now(), 22.5))

	item, err := repo.FindByID(context.Background(), "cgm-1")
	require.NoError(t, err)
	assert.Equal(t, "Networking", item.Label())
	assert.Equal(t, 22.5, item.ScheduledHours)
	assert.NoError(t, mock.ExpectationsWereMet())
}
