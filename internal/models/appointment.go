package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// AppointmentStatus represents the workflow status of an appointment.
// Payment state is tracked separately on Appointment.IsPaid.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusApproved  AppointmentStatus = "APPROVED"
	StatusRejected  AppointmentStatus = "REJECTED"
	StatusCompleted AppointmentStatus = "COMPLETED"
)

// Layouts of the wire representation of appointment date and time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

// ParseAppointmentStatus normalizes s and reports whether it names a known status.
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	st := AppointmentStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Valid reports whether s is one of the declared statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Re-applying the current status is always allowed.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment represents a booked clinic visit
type Appointment struct {
	BaseModel
	UserID          string            `gorm:"size:36;index;not null" json:"-"`
	ServiceType     string            `gorm:"size:100;not null" json:"serviceType"`
	AppointmentDate datatypes.Date    `gorm:"not null" json:"appointmentDate"`
	AppointmentTime datatypes.Time    `gorm:"not null" json:"appointmentTime"`
	Status          AppointmentStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	Notes           string            `gorm:"type:text" json:"notes"`
	IsPaid          bool              `gorm:"not null;default:false" json:"isPaid"`
	PaymentMethod   PaymentMethod     `gorm:"size:20" json:"paymentMethod,omitempty"`

	// Relations
	User    User     `gorm:"foreignKey:UserID" json:"-"`
	Payment *Payment `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("appointment_date must use YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// ParseClock parses an HH:MM time of day.
func ParseClock(s string) (datatypes.Time, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("appointment_time must use HH:MM: %w", err)
	}
	return datatypes.NewTime(t.Hour(), t.Minute(), 0, 0), nil
}

// DateString formats the appointment date as YYYY-MM-DD.
func (a *Appointment) DateString() string {
	return time.Time(a.AppointmentDate).Format(DateLayout)
}

// TimeString formats the appointment time as HH:MM.
func (a *Appointment) TimeString() string {
	d := time.Duration(a.AppointmentTime)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
