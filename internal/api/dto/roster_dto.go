package dto

import "time"

// AdminLoginRequest payload.
type AdminLoginRequest struct {
	Password string `json:"password"`
}

// AuthResponse carries the issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AddRosterEntryRequest payload.
type AddRosterEntryRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
}

// RosterEntryResponse response shape.
type RosterEntryResponse struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// SubmissionResponse response shape.
type SubmissionResponse struct {
	ID          int64     `json:"id"`
	ExternalKey string    `json:"external_key"`
	Category    string    `json:"category"`
	MasterName  string    `json:"master_name"`
	Comment     string    `json:"comment"`
	PhotoURLs   []string  `json:"photo_urls,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatsResponse response shape.
type StatsResponse struct {
	ActiveEmployees  int   `json:"active_employees"`
	TotalSubmissions int64 `json:"total_submissions"`
}
