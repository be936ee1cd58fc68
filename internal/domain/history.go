package domain

import "time"

// Login outcomes recorded in the audit history.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeLocked  = "locked"
)

// LoginRecord is one immutable audit entry. Records self-expire after the
// configured retention window; they are never referenced by other data.
type LoginRecord struct {
	ID         int64     `json:"id"`
	IdentityID int64     `json:"identity_id"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	DeviceID   string    `json:"device_id"`
	Method     string    `json:"method"`
	Outcome    string    `json:"outcome"`
	CreatedAt  time.Time `json:"created_at"`
}
