package events

import (
	"time"

	"github.com/spec-kit/intake-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSubmissionSaved   EventType = "submission_saved"
	EventRosterAdded       EventType = "roster_added"
	EventRosterReactivated EventType = "roster_reactivated"
	EventRosterDeactivated EventType = "roster_deactivated"
	EventRosterPurged      EventType = "roster_purged"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     int64       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SubmissionSavedPayload payload.
type SubmissionSavedPayload struct {
	ExternalKey string          `json:"external_key"`
	Category    domain.Category `json:"category"`
	MasterName  string          `json:"master_name"`
	PhotoCount  int             `json:"photo_count"`
	MirrorOK    bool            `json:"mirror_ok"`
}

// RosterChangedPayload payload for add/reactivate/deactivate/purge.
type RosterChangedPayload struct {
	RosterEntryID int64  `json:"roster_entry_id"`
	TelegramID    int64  `json:"telegram_id,omitempty"`
	Name          string `json:"name,omitempty"`
}
