package models

import "time"

// MetricsSnapshot summarises in-process counters for the operator dashboard.
type MetricsSnapshot struct {
	RequestsTotal            uint64                 `json:"requests_total"`
	AverageRequestDurationMs float64                `json:"average_request_duration_ms"`
	Outcomes                 map[OutcomeCode]uint64 `json:"outcomes"`
	MoodleRequests           uint64                 `json:"moodle_requests"`
	MoodleFailures           uint64                 `json:"moodle_failures"`
	AverageMoodleDurationMs  float64                `json:"average_moodle_duration_ms"`
	LockContentions          uint64                 `json:"lock_contentions"`
	Goroutines               int                    `json:"goroutines"`
	GeneratedAt              time.Time              `json:"generated_at"`
}
