package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

func newLessonRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var lessonColumns = []string{"id", "class_group_module_id", "starts_at", "ends_at", "created_at", "class_group_id", "trainer_id", "room_id"}

func TestLessonRepositoryFindConflictsByRoom(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	rows := sqlmock.NewRows(lessonColumns).
		AddRow("lesson-1", "cgm-9", start.Add(time.Hour), end.Add(time.Hour), start, "cg-2", "trainer-2", "room-1")
	mock.ExpectQuery(`WHERE l\.starts_at < \$1 AND l\.ends_at > \$2 AND cgm\.room_id = \$3 ORDER BY`).
		WithArgs(end, start, "room-1").
		WillReturnRows(rows)

	lessons, err := repo.FindConflicts(context.Background(), models.ConflictFilter{RoomID: "room-1", StartsAt: start, EndsAt: end})
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "cg-2", lessons[0].ClassGroupID)
	assert.Equal(t, "room-1", *lessons[0].RoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryFindConflictsCombinesFilters(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	start := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	mock.ExpectQuery(`cgm\.trainer_id = \$3 AND cgm\.class_group_id = \$4`).
		WithArgs(end, start, "trainer-1", "cg-1").
		WillReturnRows(sqlmock.NewRows(lessonColumns))

	lessons, err := repo.FindConflicts(context.Background(), models.ConflictFilter{TrainerID: "trainer-1", ClassGroupID: "cg-1", StartsAt: start, EndsAt: end})
	require.NoError(t, err)
	assert.Empty(t, lessons)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryFindConflictsRequiresResource(t *testing.T) {
	db, _, cleanup := newLessonRepoMock(t)
	defer cleanup()

	_, err := NewLessonRepository(db).FindConflicts(context.Background(), models.ConflictFilter{})
	assert.Error(t, err)
}

func TestLessonRepositoryCreateWithinTx(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lessons").
		WithArgs(sqlmock.AnyArg(), "cgm-1", start, start.Add(3*time.Hour), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	lesson := &models.Lesson{ModuleAssignmentID: "cgm-1", StartsAt: start, EndsAt: start.Add(3 * time.Hour)}
	require.NoError(t, repo.Create(context.Background(), tx, lesson))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, lesson.ID)
	assert.False(t, lesson.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListAndFind(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE cgm\.class_group_id = \$1 ORDER BY l\.starts_at`).
		WithArgs("cg-1").
		WillReturnRows(sqlmock.NewRows(lessonColumns).
			AddRow("lesson-1", "cgm-1", start, start.Add(3*time.Hour), start, "cg-1", "trainer-1", "room-1").
			AddRow("lesson-2", "cgm-1", start.Add(4*time.Hour), start.Add(7*time.Hour), start, "cg-1", "trainer-1", "room-1"))

	lessons, err := repo.ListByClassGroup(context.Background(), "cg-1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, 3.0, lessons[1].Hours())

	mock.ExpectQuery(`WHERE l\.id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec(`DELETE FROM lessons WHERE id = \$1`).
		WithArgs("lesson-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "lesson-1"))

	mock.ExpectExec(`DELETE FROM lessons WHERE id = \$1`).
		WithArgs("lesson-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "lesson-2"), sql.ErrNoRows)

	mock.ExpectExec(`DELETE FROM lessons WHERE class_group_module_id IN`).
		WithArgs("cg-1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	deleted, err := repo.DeleteByClassGroup(context.Background(), "cg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
