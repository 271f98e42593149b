// Package repository contains the data access layer: one repository per
// table, each holding a *sql.DB.  Methods ending in Tx operate inside a
// caller-owned transaction; the caller commits or rolls back.  Missing
// rows are reported as sql.ErrNoRows; constraint failures use the
// sentinel errors below so higher layers can tell them apart from
// infrastructure problems.
package repository

import (
	"errors"
	"strings"
)

// ErrEmailExists is returned when an insert or update would duplicate a
// user email.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateHistoryID is returned when a history insert collides with
// an existing record for the same reservation id.  Archival is keyed on
// the reservation id, so this only happens if something tries to
// archive the same reservation twice.
var ErrDuplicateHistoryID = errors.New("history record already exists for this reservation")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (error 1062).  The driver does not export a typed error for this, so
// the code is matched in the message.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
