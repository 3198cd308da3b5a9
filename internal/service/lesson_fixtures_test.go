package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/scheduling"
)

// memoryStore is an in-memory stand-in for the module, availability and lesson repositories.
type memoryStore struct {
	mu           sync.Mutex
	modules      []models.ModuleAssignment
	availability map[string][]models.AvailabilityWindow
	lessons      []models.Lesson
	seq          int

	moduleLookups     int
	availabilityCalls int
	conflictCalls     int
	createErr         error
}

func newMemoryStore(modules ...models.ModuleAssignment) *memoryStore {
	return &memoryStore{modules: modules, availability: map[string][]models.AvailabilityWindow{}}
}

func (m *memoryStore) module(id string) (models.ModuleAssignment, bool) {
	for _, mod := range m.modules {
		if mod.ID == id {
			return mod, true
		}
	}
	return models.ModuleAssignment{}, false
}

func (m *memoryStore) withScheduled(mod models.ModuleAssignment) models.ModuleAssignment {
	for _, l := range m.lessons {
		if l.ModuleAssignmentID == mod.ID {
			mod.ScheduledHours += l.Hours()
		}
	}
	return mod
}

func (m *memoryStore) ListActiveByClassGroup(ctx context.Context, classGroupID string) ([]models.ModuleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ModuleAssignment
	for _, mod := range m.modules {
		if mod.ClassGroupID == classGroupID {
			out = append(out, m.withScheduled(mod))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*models.ModuleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moduleLookups++
	mod, ok := m.module(id)
	if !ok {
		return nil, sql.ErrNoRows
	}
	mod = m.withScheduled(mod)
	return &mod, nil
}

func (m *memoryStore) ListByTrainer(ctx context.Context, trainerID string, from, to time.Time) ([]models.AvailabilityWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availabilityCalls++
	var out []models.AvailabilityWindow
	for _, w := range m.availability[trainerID] {
		if (to.IsZero() || w.StartsAt.Before(to)) && (from.IsZero() || w.EndsAt.After(from)) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memoryStore) FindConflicts(ctx context.Context, filter models.ConflictFilter) ([]models.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflictCalls++
	if filter.RoomID == "" && filter.TrainerID == "" && filter.ClassGroupID == "" {
		return nil, fmt.Errorf("no resource filter")
	}
	probe := scheduling.Interval{Start: filter.StartsAt, End: filter.EndsAt}
	var out []models.Lesson
	for _, l := range m.lessons {
		mod, _ := m.module(l.ModuleAssignmentID)
		if filter.RoomID != "" && mod.Room() != filter.RoomID {
			continue
		}
		if filter.TrainerID != "" && mod.Trainer() != filter.TrainerID {
			continue
		}
		if filter.ClassGroupID != "" && mod.ClassGroupID != filter.ClassGroupID {
			continue
		}
		if scheduling.Overlaps(probe, scheduling.Interval{Start: l.StartsAt, End: l.EndsAt}) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryStore) Create(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	lesson.ID = fmt.Sprintf("lesson-%d", m.seq)
	lesson.CreatedAt = time.Now().UTC()
	m.lessons = append(m.lessons, *lesson)
	return nil
}

func (m *memoryStore) LessonByID(id string) (models.Lesson, bool) {
	for _, l := range m.lessons {
		if l.ID == id {
			return l, true
		}
	}
	return models.Lesson{}, false
}

func (m *memoryStore) ListByClassGroup(ctx context.Context, classGroupID string) ([]models.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Lesson
	for _, l := range m.lessons {
		if mod, _ := m.module(l.ModuleAssignmentID); mod.ClassGroupID == classGroupID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.lessons {
		if l.ID == id {
			m.lessons = append(m.lessons[:i], m.lessons[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memoryStore) DeleteByClassGroup(ctx context.Context, classGroupID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.lessons[:0]
	var deleted int64
	for _, l := range m.lessons {
		if mod, _ := m.module(l.ModuleAssignmentID); mod.ClassGroupID == classGroupID {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	m.lessons = kept
	return deleted, nil
}

// lessonStoreAdapter resolves FindByID to lessons instead of module assignments.
type lessonStoreAdapter struct{ *memoryStore }

func (a lessonStoreAdapter) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.LessonByID(id)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

// addWeekdayAvailability registers a window from fromHour to toHour (UTC) on every weekday of [first, first+days).
func (m *memoryStore) addWeekdayAvailability(trainerID string, first time.Time, days, fromHour, toHour int) {
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		if scheduling.IsWeekend(day) {
			continue
		}
		m.availability[trainerID] = append(m.availability[trainerID], models.AvailabilityWindow{
			ID:        fmt.Sprintf("%s-%d", trainerID, i),
			TrainerID: trainerID,
			StartsAt:  day.Add(time.Duration(fromHour) * time.Hour),
			EndsAt:    day.Add(time.Duration(toHour) * time.Hour),
			Mode:      models.AvailabilityInPerson,
		})
	}
}

func strPtr(v string) *string { return &v }

func moduleFixture(id, classGroup, trainer, room string, planned float64, sequence int) models.ModuleAssignment {
	m := models.ModuleAssignment{
		ID:           id,
		ClassGroupID: classGroup,
		ModuleID:     "mod-" + id,
		ModuleName:   "Module " + id,
		PlannedHours: planned,
		Sequence:     sequence,
	}
	if trainer != "" {
		m.TrainerID = strPtr(trainer)
	}
	if room != "" {
		m.RoomID = strPtr(room)
	}
	return m
}

func date(day string) time.Time {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return d
}

func clock(day string, hour, minute int) time.Time {
	return date(day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
