package masquerade

import "time"

// Session represents one impersonation grant. Rows are never deleted; an
// ended session stays behind as the audit trail.
type Session struct {
	ID           string     `json:"id"`
	SuperAdminID int64      `json:"superAdminId"`
	TargetUserID int64      `json:"targetUserId"`
	TenantID     *int64     `json:"tenantId,omitempty"`
	SessionToken string     `json:"-"`
	IsActive     bool       `json:"isActive"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
	ExpiresAt    time.Time  `json:"expiresAt"`
}

// Expired reports whether the grant has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
