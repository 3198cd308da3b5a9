package models

import "time"

// SystemMetrics is a point-in-time summary of service instrumentation.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	GenerationRuns           uint64    `json:"generation_runs"`
	LessonsGenerated         uint64    `json:"lessons_generated"`
	DaysSkipped              uint64    `json:"days_skipped"`
	ManualLessonRequests     uint64    `json:"manual_lesson_requests"`
	AvailabilityCacheHits    uint64    `json:"availability_cache_hits"`
	AvailabilityCacheMisses  uint64    `json:"availability_cache_misses"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
