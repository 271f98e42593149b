package model

import "time"

// Status is the lifecycle state of a reservation.  PENDING and
// CONFIRMED block availability for their interval; CANCELLED and
// COMPLETED are terminal and only ever appear on history rows, because
// a reservation is archived in the same operation that moves it to a
// terminal status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether s ends a reservation's active life.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Blocks reports whether a reservation in status s counts toward
// availability conflicts.
func (s Status) Blocks() bool {
	return s == StatusPending || s == StatusConfirmed
}

// MaxReasonLen bounds the free-text reason on a reservation.
const MaxReasonLen = 100

// Reservation is a time-bounded claim on an Environment by a User, as
// stored in the `reservations` table.  StartTime is inclusive and
// EndTime exclusive; StartTime < EndTime always holds.
//
// Fields:
//  ID            – primary key (auto increment).
//  EnvironmentID – environment being reserved.
//  UserID        – holder of the reservation (UUID).
//  StartTime     – when the reservation begins (inclusive, UTC).
//  EndTime       – when the reservation ends (exclusive, UTC).
//  CreatedAt     – when the request was made.
//  Status        – lifecycle state.
//  Reason        – free text, at most MaxReasonLen characters.
type Reservation struct {
	ID            uint64    // reservations.id
	EnvironmentID uint64    // reservations.environment_id
	UserID        string    // reservations.user_id
	StartTime     time.Time // reservations.start_time
	EndTime       time.Time // reservations.end_time
	CreatedAt     time.Time // reservations.created_at
	Status        Status    // reservations.status
	Reason        string    // reservations.reason
}

// ReservationHistory is the immutable archived copy of a reservation
// that reached a terminal status.  It keeps the originating
// reservation's id as its own primary key, which is what makes a
// second archival of the same reservation fail at insert time.  The
// environment and user names are denormalized so the record survives
// later deletion of either row.
//
// Fields mirror Reservation plus the resolved display names.
type ReservationHistory struct {
	ID              uint64    // reservation_history.id (same as reservations.id)
	EnvironmentID   uint64    // reservation_history.environment_id
	EnvironmentName string    // reservation_history.environment_name
	UserID          string    // reservation_history.user_id
	UserName        string    // reservation_history.user_name
	StartTime       time.Time // reservation_history.start_time
	EndTime         time.Time // reservation_history.end_time
	CreatedAt       time.Time // reservation_history.created_at
	Status          Status    // reservation_history.status (terminal)
	Reason          string    // reservation_history.reason
}
