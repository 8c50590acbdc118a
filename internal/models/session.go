package models

import "time"

// SessionStatus describes the stored session as far as the client can tell
// without asking the backend.
type SessionStatus struct {
	Authenticated   bool      `json:"authenticated"`
	HasRefreshToken bool      `json:"has_refresh_token"`
	Username        string    `json:"username,omitempty"`
	Role            string    `json:"role,omitempty"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
	Expired         bool      `json:"expired"`
}
