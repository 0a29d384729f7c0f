// Package events defines the payloads emitted after writes and publishes them to Kafka.
package events

import "time"

// Event types.
const (
	TypeRunningLogMerged   = "running_log.merged"
	TypeMarathonCreated    = "marathon.created"
	TypeApplicationCreated = "application.created"
)

// RunningLogMerged is emitted after a user's daily data has been persisted.
type RunningLogMerged struct {
	UserID    string    `json:"user_id"`
	Days      []string  `json:"days"`
	Created   bool      `json:"created"`
	TotalDays int       `json:"total_days"`
	MergedAt  time.Time `json:"merged_at"`
}

// MarathonCreated is emitted when an organiser publishes a marathon.
type MarathonCreated struct {
	MarathonID string    `json:"marathon_id"`
	Title      string    `json:"title"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}

// ApplicationCreated is emitted when a runner registers for a marathon.
type ApplicationCreated struct {
	ApplicationID string    `json:"application_id"`
	MarathonID    string    `json:"marathon_id,omitempty"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
}
