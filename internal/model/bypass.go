package model

import "time"

// BypassSession is a short-lived credential letting a privileged user skip
// the network-origin restriction. It is never renewed in place; expiry means
// a new bypass must be issued.
type BypassSession struct {
	ID        int       `json:"id"`
	Token     string    `json:"token"`
	UserID    int       `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the bypass is no longer valid at now.
func (b *BypassSession) Expired(now time.Time) bool {
	return !now.Before(b.ExpiresAt)
}

// ActivateBypassRequest is the payload for the bypass activation route.
// It requires full admin credentials plus the out-of-band shared code.
type ActivateBypassRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	BypassCode string `json:"bypass_code" binding:"required"`
}
