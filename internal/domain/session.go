package domain

import "time"

// Session is one authenticated viewer login. Sessions live in memory only;
// the token is the sole credential and is never persisted.
type Session struct {
	Token         string    `json:"token"`
	CreatedAt     time.Time `json:"created_at"`
	UserAgent     string    `json:"user_agent"`
	SourceAddress string    `json:"source_address"`
	Fingerprint   string    `json:"-"`
	IsTrusted     bool      `json:"is_trusted"`
}

// SessionView is the listing shape returned to authenticated viewers.
// RemainMS is omitted for trusted sessions, which never expire.
type SessionView struct {
	Token         string    `json:"token"`
	CreatedAt     time.Time `json:"created_at"`
	UserAgent     string    `json:"user_agent"`
	SourceAddress string    `json:"source_address"`
	IsTrusted     bool      `json:"is_trusted"`
	IsCurrent     bool      `json:"is_current"`
	RemainMS      *int64    `json:"remain_ms,omitempty"`
}

// LoginAttempt is one audit record of a login attempt, successful or not.
type LoginAttempt struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"size:128" json:"username"`
	DeviceID      string    `gorm:"size:256" json:"device_id"`
	UserAgent     string    `gorm:"size:512" json:"user_agent"`
	SourceAddress string    `gorm:"size:64" json:"source_address"`
	Outcome       string    `gorm:"size:32;index" json:"outcome"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}
