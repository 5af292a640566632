package hahoneywell

import "time"

// Event types recorded in the event log.
const (
	EventModeChange     = "MODE_CHANGE"
	EventSetpoint       = "SETPOINT"
	EventPreset         = "PRESET"
	EventPollStale      = "POLL_STALE"
	EventReauthRequired = "REAUTH_REQUIRED"
	EventError          = "ERROR"
)

// Event is a single log entry.
type Event struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

// User is an API account for the local HTTP surface.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
