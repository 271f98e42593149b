// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationArchivedEvent is published when a reservation reaches a
// terminal status and is moved to the history table.  It carries the
// denormalized snapshot so consumers can log or notify without hitting
// the primary database.
type ReservationArchivedEvent struct {
	ReservationID   uint64 `json:"reservation_id"`
	EnvironmentID   uint64 `json:"environment_id"`
	EnvironmentName string `json:"environment_name"`
	UserID          string `json:"user_id"`
	UserName        string `json:"user_name"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Status          string `json:"status"`
	Reason          string `json:"reason,omitempty"`
	ArchivedAt      string `json:"archived_at"`
}
