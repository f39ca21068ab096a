package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/campus/internal/rbac"
)

// Storage keys inside a scope.
const (
	SessionKey       = "erp_user_session"
	LoginActivityKey = "erp_login_activity"
)

// Record is the persisted session for the single principal of a scope.
type Record struct {
	User         rbac.Principal `json:"user"`
	LoginTime    time.Time      `json:"loginTime"`
	SessionID    string         `json:"sessionId"`
	LastActivity time.Time      `json:"lastActivity"`
}

// ExpiresAt returns the instant after which the record is no longer valid.
func (r Record) ExpiresAt(timeout time.Duration) time.Time {
	return r.LastActivity.Add(timeout)
}

// LoginActivity is the audit record written alongside a new session.
type LoginActivity struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	LoginTime time.Time `json:"loginTime"`
	SessionID string    `json:"sessionId"`
	UserAgent string    `json:"userAgent"`
	IPAddress string    `json:"ipAddress"`
}

func (r Record) complete() bool {
	return r.User.ID != "" && r.SessionID != "" && !r.LastActivity.IsZero()
}

// GenerateSessionID returns an identifier made of a millisecond timestamp and
// a random component. Uniqueness is best effort.
func GenerateSessionID(now time.Time) string {
	random := ""
	if id, err := uuid.NewRandom(); err == nil {
		random = strings.ReplaceAll(id.String(), "-", "")[:12]
	} else {
		random = strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return "session_" + strconv.FormatInt(now.UnixMilli(), 36) + "_" + random
}
