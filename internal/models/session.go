package models

import (
	"time"
)

// Session is a persisted refresh token issued at login. Logging out or
// rotating the token revokes it.
type Session struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"size:512;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Active reports whether the session can still be used at t.
func (s *Session) Active(t time.Time) bool {
	return !s.IsRevoked && t.Before(s.ExpiresAt)
}
