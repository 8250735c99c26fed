package model

import "time"

// Session is an authenticated login session, stored server-side and
// referenced by an opaque cookie token.
type Session struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
	MemberID    string    `json:"member_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}
