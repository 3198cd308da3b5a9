package models

import (
	"fmt"
	"time"
)

// Regime is the daily time-of-day policy of a class group.
type Regime string

const (
	RegimeDay     Regime = "day"
	RegimeEvening Regime = "evening"
)

// Valid reports whether the regime is known.
func (r Regime) Valid() bool {
	return r == RegimeDay || r == RegimeEvening
}

// AvailabilityMode tags how a trainer is available during a window.
type AvailabilityMode string

const (
	AvailabilityInPerson AvailabilityMode = "in-person"
	AvailabilityRemote   AvailabilityMode = "remote"
)

// ModuleAssignment binds a curriculum module to a class group with its trainer, room and hour budget.
type ModuleAssignment struct {
	ID             string    `db:"id" json:"id"`
	ClassGroupID   string    `db:"class_group_id" json:"class_group_id"`
	ModuleID       string    `db:"module_id" json:"module_id"`
	ModuleName     string    `db:"module_name" json:"module_name"`
	TrainerID      *string   `db:"trainer_id" json:"trainer_id,omitempty"`
	RoomID         *string   `db:"room_id" json:"room_id,omitempty"`
	PlannedHours   float64   `db:"planned_hours" json:"planned_hours"`
	ScheduledHours float64   `db:"scheduled_hours" json:"scheduled_hours"`
	Sequence       int       `db:"sequence" json:"sequence"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Configured reports whether both trainer and room are assigned.
func (m ModuleAssignment) Configured() bool {
	return m.TrainerID != nil && *m.TrainerID != "" && m.RoomID != nil && *m.RoomID != ""
}

// Trainer returns the trainer id or "".
func (m ModuleAssignment) Trainer() string {
	if m.TrainerID == nil {
		return ""
	}
	return *m.TrainerID
}

// Room returns the room id or "".
func (m ModuleAssignment) Room() string {
	if m.RoomID == nil {
		return ""
	}
	return *m.RoomID
}

// Label is used in logs and user-facing messages.
func (m ModuleAssignment) Label() string {
	if m.ModuleName != "" {
		return m.ModuleName
	}
	return m.ID
}

// AvailabilityWindow is a half-open interval during which a trainer can teach.
type AvailabilityWindow struct {
	ID        string           `db:"id" json:"id"`
	TrainerID string           `db:"trainer_id" json:"trainer_id"`
	StartsAt  time.Time        `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time        `db:"ends_at" json:"ends_at"`
	Mode      AvailabilityMode `db:"mode" json:"mode"`
}

// Lesson is a concrete scheduled occurrence of a module assignment.
type Lesson struct {
	ID                 string    `db:"id" json:"id"`
	ModuleAssignmentID string    `db:"class_group_module_id" json:"module_assignment_id"`
	StartsAt           time.Time `db:"starts_at" json:"starts_at"`
	EndsAt             time.Time `db:"ends_at" json:"ends_at"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`

	// Derived through the module assignment; populated by conflict and list queries.
	ClassGroupID string  `db:"class_group_id" json:"class_group_id,omitempty"`
	TrainerID    *string `db:"trainer_id" json:"trainer_id,omitempty"`
	RoomID       *string `db:"room_id" json:"room_id,omitempty"`
}

// Hours returns the lesson duration in hours.
func (l Lesson) Hours() float64 {
	return l.EndsAt.Sub(l.StartsAt).Hours()
}

// ConflictFilter selects existing lessons sharing a resource with an interval.
// At least one of RoomID, TrainerID or ClassGroupID must be set.
type ConflictFilter struct {
	RoomID       string
	TrainerID    string
	ClassGroupID string
	StartsAt     time.Time
	EndsAt       time.Time
}

// Conflict dimensions.
const (
	DimensionRoom       = "ROOM"
	DimensionTrainer    = "TRAINER"
	DimensionClassGroup = "CLASS_GROUP"
)

// LessonConflict describes an existing lesson that blocks a proposed interval.
type LessonConflict struct {
	LessonID   string    `json:"lesson_id"`
	Dimension  string    `json:"dimension"`
	ResourceID string    `json:"resource_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}

// LessonConflictError is returned when a lesson would double-book a room, trainer or class group.
type LessonConflictError struct {
	Conflict LessonConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *LessonConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s already booked from %s to %s",
		dimensionNoun(e.Conflict.Dimension),
		e.Conflict.ResourceID,
		e.Conflict.StartsAt.Format(time.RFC3339),
		e.Conflict.EndsAt.Format(time.RFC3339),
	)
}

func dimensionNoun(dimension string) string {
	switch dimension {
	case DimensionRoom:
		return "room"
	case DimensionTrainer:
		return "trainer"
	case DimensionClassGroup:
		return "class group"
	default:
		return "resource"
	}
}
