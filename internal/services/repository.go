package services

import (
	"context"
	"time"

	"clinic-booking-server/internal/models"
)

// AppointmentScope restricts appointment lookups. An empty OwnerID matches
// every appointment.
type AppointmentScope struct {
	OwnerID string
}

// Repositories report a missing (or out of scope) row as an apperr NotFound
// error. Errors returned by mutate, guard and build callbacks are passed
// through unchanged and abort the surrounding transaction.

type UserRepository interface {
	// CreateWithProfile stores both rows in one transaction. A duplicate
	// email yields apperr.KindDuplicateAccount.
	CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	FindActive(ctx context.Context, token, userID string, now time.Time) (*models.Session, error)
	// Rotate revokes old and stores next atomically.
	Rotate(ctx context.Context, old, next *models.Session) error
	Revoke(ctx context.Context, token string) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *models.Appointment) error
	Get(ctx context.Context, id string, scope AppointmentScope) (*models.Appointment, error)
	// List returns appointments in creation order. An empty status matches all.
	List(ctx context.Context, scope AppointmentScope, status models.AppointmentStatus) ([]models.Appointment, error)
	CountByStatus(ctx context.Context, scope AppointmentScope) (map[models.AppointmentStatus]int64, error)
	// Update locks the row, applies mutate and saves the result.
	Update(ctx context.Context, id string, scope AppointmentScope, mutate func(*models.Appointment) error) (*models.Appointment, error)
	// Delete locks the row, runs guard and deletes it when guard allows.
	Delete(ctx context.Context, id string, scope AppointmentScope, guard func(*models.Appointment) error) (*models.Appointment, error)
}

type PaymentRepository interface {
	// Record locks the appointment, asks build for the payment to store,
	// inserts it and marks the appointment paid, all in one transaction.
	// A second payment for the same appointment yields apperr.KindAlreadyPaid.
	Record(ctx context.Context, appointmentID string, scope AppointmentScope, build func(*models.Appointment) (*models.Payment, error)) (*models.Payment, error)
	// FindByAppointment returns the payment with its payer preloaded.
	FindByAppointment(ctx context.Context, appointmentID string) (*models.Payment, error)
}
