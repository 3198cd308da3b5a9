package dto

import (
	"time"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// GenerateLessonsRequest asks the scheduler to fill a class group's calendar.
type GenerateLessonsRequest struct {
	ClassGroupID string `json:"-" validate:"required"`
	StartDate    string `json:"startDate" validate:"required,datetime=2006-01-02"`
	Regime       string `json:"regime" validate:"required,oneof=day evening"`
	Async        bool   `json:"async"`
}

// CreateLessonRequest books one lesson by hand. Start and End use the store encoding.
type CreateLessonRequest struct {
	ModuleAssignmentID string    `json:"moduleAssignmentId" validate:"required"`
	Start              time.Time `json:"start" validate:"required"`
	End                time.Time `json:"end" validate:"required"`
}

// Failure kinds reported for a rejected candidate.
const (
	FailureConfiguration = "CONFIGURATION"
	FailureAvailability  = "AVAILABILITY"
	FailureConflict      = "CONFLICT"
	FailureWindow        = "WINDOW"
)

// CandidateFailure explains why one segment of a candidate could not be placed.
type CandidateFailure struct {
	Candidate  string    `json:"candidate"`
	ModuleID   string    `json:"moduleAssignmentId"`
	Kind       string    `json:"kind"`
	Dimension  string    `json:"dimension,omitempty"`
	ResourceID string    `json:"resourceId,omitempty"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Reason     string    `json:"reason"`
}

// DayFailure records a working day on which no candidate validated.
type DayFailure struct {
	Date    string             `json:"date"`
	Reasons []CandidateFailure `json:"reasons,omitempty"`
}

// GenerateResult summarises one generation run.
type GenerateResult struct {
	ClassGroupID   string             `json:"classGroupId"`
	Regime         models.Regime      `json:"regime"`
	StartDate      string             `json:"startDate"`
	LastDate       string             `json:"lastDate,omitempty"`
	LessonsCreated int                `json:"lessonsCreated"`
	DaysIterated   int                `json:"daysIterated"`
	DaysScheduled  int                `json:"daysScheduled"`
	DaysSkipped    int                `json:"daysSkipped"`
	Completed      bool               `json:"completed"`
	Remaining      map[string]float64 `json:"remainingHours,omitempty"`
	SkippedDays    []DayFailure       `json:"skippedDays,omitempty"`
	Lessons        []models.Lesson    `json:"lessons,omitempty"`
}

// Generation run states.
const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// GenerationRun tracks an asynchronous generation request.
type GenerationRun struct {
	ID           string          `json:"id"`
	ClassGroupID string          `json:"classGroupId"`
	StartDate    string          `json:"startDate"`
	Regime       string          `json:"regime"`
	Status       string          `json:"status"`
	Attempts     int             `json:"attempts"`
	Result       *GenerateResult `json:"result,omitempty"`
	ErrorCode    string          `json:"errorCode,omitempty"`
	Error        string          `json:"error,omitempty"`
	QueuedAt     time.Time       `json:"queuedAt"`
	StartedAt    *time.Time      `json:"startedAt,omitempty"`
	FinishedAt   *time.Time      `json:"finishedAt,omitempty"`
}

// ClearLessonsResponse reports a bulk deletion.
type ClearLessonsResponse struct {
	ClassGroupID string `json:"classGroupId"`
	Deleted      int64  `json:"deleted"`
}
