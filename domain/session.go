package domain

import "time"

// Session is what the session store keeps per issued token.
type Session struct {
	UserID     string    `json:"user_id"`
	CustomerID uint      `json:"customer_id,omitempty"`
	Role       string    `json:"role"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
