package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
)

// ParseRole normalizes an externally supplied role. Matching is
// case-insensitive and an empty value defaults to RolePatient.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case "", RolePatient:
		return RolePatient, true
	case RoleDoctor:
		return RoleDoctor, true
	}
	return "", false
}

// User is an account known to the identity provider.
type User struct {
	BaseModel
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FullName string `gorm:"size:200" json:"fullName"`
	IsStaff  bool   `gorm:"default:false" json:"isStaff"`

	// Relations (not always preloaded)
	Profile      *Profile      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Appointments []Appointment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Profile holds the clinic-specific attributes of a user. Exactly one
// exists per user.
type Profile struct {
	BaseModel
	UserID      string `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Role        Role   `gorm:"size:20;not null;default:'PATIENT'" json:"role"`
	PhoneNumber string `gorm:"size:15" json:"phoneNumber"`
	Speciality  string `gorm:"size:100" json:"speciality,omitempty"` // doctors only
	HospitalID  string `gorm:"size:50" json:"hospitalId,omitempty"`  // doctors only
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	IsAdmin     bool      `json:"isAdmin"`
	Role        Role      `json:"role,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Speciality  string    `json:"speciality,omitempty"`
	HospitalID  string    `json:"hospitalId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	out := UserSanitized{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		IsAdmin:   u.IsStaff,
		CreatedAt: u.CreatedAt,
	}
	if u.Profile != nil {
		out.Role = u.Profile.Role
		out.PhoneNumber = u.Profile.PhoneNumber
		out.Speciality = u.Profile.Speciality
		out.HospitalID = u.Profile.HospitalID
	}
	return out
}
