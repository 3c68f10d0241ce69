package domain

import "time"

// RosterEntry models an employee on the administrator-controlled allow-list.
// TelegramID is unique across the table; deactivated entries keep their row so
// that re-adding the same identity reactivates it in place.
type RosterEntry struct {
	ID         int64
	TelegramID Identity
	Name       string
	Active     bool
	CreatedAt  time.Time
}
