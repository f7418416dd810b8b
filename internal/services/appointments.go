package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"clinic-booking-server/internal/apperr"
	"clinic-booking-server/internal/events"
	"clinic-booking-server/internal/models"
)

const maxServiceTypeLen = 100

// CreateAppointmentInput carries a booking request. Date and time are in
// wire format (YYYY-MM-DD and HH:MM).
type CreateAppointmentInput struct {
	ServiceType     string
	AppointmentDate string
	AppointmentTime string
	Notes           *string
}

// UpdateStatusInput carries a staff status change. A non-nil Notes replaces
// the stored notes, even when empty.
type UpdateStatusInput struct {
	Status string
	Notes  *string
}

// Summary counts the appointments visible to a caller.
type Summary struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Approved  int64 `json:"approved"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

// AppointmentService implements the appointment lifecycle.
type AppointmentService struct {
	repo   AppointmentRepository
	events events.Publisher
	now    func() time.Time
	log    zerolog.Logger
}

func NewAppointmentService(repo AppointmentRepository, pub events.Publisher, log zerolog.Logger) *AppointmentService {
	return &AppointmentService{repo: repo, events: pub, now: time.Now, log: log}
}

// Create books a new PENDING appointment owned by the caller.
func (s *AppointmentService) Create(ctx context.Context, ident Identity, in CreateAppointmentInput) (*models.Appointment, error) {
	if err := requireIdentity(ident); err != nil {
		return nil, err
	}

	serviceType := strings.TrimSpace(in.ServiceType)
	switch {
	case serviceType == "":
		return nil, apperr.Validation("service_type is required")
	case len(serviceType) > maxServiceTypeLen:
		return nil, apperr.Validation("service_type must be at most 100 characters")
	case strings.TrimSpace(in.AppointmentDate) == "":
		return nil, apperr.Validation("appointment_date is required")
	case strings.TrimSpace(in.AppointmentTime) == "":
		return nil, apperr.Validation("appointment_time is required")
	}

	date, err := models.ParseDate(in.AppointmentDate)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "appointment_date must use YYYY-MM-DD", err)
	}
	clock, err := models.ParseClock(in.AppointmentTime)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "appointment_time must use HH:MM", err)
	}
	if date.Before(today(s.now())) {
		return nil, apperr.New(apperr.KindPastDate, "appointment_date cannot be in the past")
	}

	appt := &models.Appointment{
		UserID:          ident.UserID,
		ServiceType:     serviceType,
		AppointmentDate: datatypes.Date(date),
		AppointmentTime: clock,
		Status:          models.StatusPending,
	}
	if in.Notes != nil {
		appt.Notes = *in.Notes
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}

	publish(ctx, s.log, s.events, events.Event{
		Type:          events.AppointmentCreated,
		AppointmentID: appt.ID,
		UserID:        appt.UserID,
		Status:        string(appt.Status),
	})
	return appt, nil
}

// List returns the appointments visible to the caller in creation order,
// optionally narrowed to one status.
func (s *AppointmentService) List(ctx context.Context, ident Identity, status string) ([]models.Appointment, error) {
	if err := requireIdentity(ident); err != nil {
		return nil, err
	}

	var filter models.AppointmentStatus
	if strings.TrimSpace(status) != "" {
		st, ok := models.ParseAppointmentStatus(status)
		if !ok {
			return nil, apperr.New(apperr.KindInvalidStatus, "unknown appointment status "+status)
		}
		filter = st
	}
	return s.repo.List(ctx, ident.scope(), filter)
}

// Get returns one appointment if the caller owns it or is elevated.
func (s *AppointmentService) Get(ctx context.Context, ident Identity, id string) (*models.Appointment, error) {
	if err := requireIdentity(ident); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id, ident.scope())
}

// Summary counts the caller's visible appointments by status. Rejected
// appointments are reported as cancelled.
func (s *AppointmentService) Summary(ctx context.Context, ident Identity) (Summary, error) {
	if err := requireIdentity(ident); err != nil {
		return Summary{}, err
	}
	counts, err := s.repo.CountByStatus(ctx, ident.scope())
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Pending:   counts[models.StatusPending],
		Approved:  counts[models.StatusApproved],
		Completed: counts[models.StatusCompleted],
		Cancelled: counts[models.StatusRejected],
	}
	for _, n := range counts {
		sum.Total += n
	}
	return sum, nil
}

// Delete removes one of the caller's own appointments. Paid or completed
// appointments are kept.
func (s *AppointmentService) Delete(ctx context.Context, ident Identity, id string) error {
	if err := requireIdentity(ident); err != nil {
		return err
	}

	appt, err := s.repo.Delete(ctx, id, ident.ownScope(), func(a *models.Appointment) error {
		if a.IsPaid {
			return apperr.New(apperr.KindInvalidState, "paid appointments cannot be deleted")
		}
		if a.Status == models.StatusCompleted {
			return apperr.New(apperr.KindInvalidState, "completed appointments cannot be deleted")
		}
		return nil
	})
	if err != nil {
		return err
	}

	publish(ctx, s.log, s.events, events.Event{
		Type:          events.AppointmentDeleted,
		AppointmentID: appt.ID,
		UserID:        appt.UserID,
		Status:        string(appt.Status),
	})
	return nil
}

// UpdateStatus moves an appointment along its workflow. Only elevated
// callers may do so.
func (s *AppointmentService) UpdateStatus(ctx context.Context, ident Identity, id string, in UpdateStatusInput) (*models.Appointment, error) {
	if err := requireIdentity(ident); err != nil {
		return nil, err
	}
	if !ident.Elevated {
		return nil, apperr.Forbidden("only staff can change appointment status")
	}

	next, ok := models.ParseAppointmentStatus(in.Status)
	if !ok {
		return nil, apperr.New(apperr.KindInvalidStatus, "status must be one of PENDING, APPROVED, REJECTED, COMPLETED")
	}

	appt, err := s.repo.Update(ctx, id, ident.scope(), func(a *models.Appointment) error {
		if !a.Status.CanTransitionTo(next) {
			return apperr.New(apperr.KindInvalidState,
				"cannot move appointment from "+string(a.Status)+" to "+string(next))
		}
		a.Status = next
		if in.Notes != nil {
			a.Notes = *in.Notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appt.ID).
		Str("status", string(appt.Status)).
		Str("by", ident.UserID).
		Msg("appointment status updated")

	publish(ctx, s.log, s.events, events.Event{
		Type:          events.AppointmentStatusUpdated,
		AppointmentID: appt.ID,
		UserID:        appt.UserID,
		Status:        string(appt.Status),
	})
	return appt, nil
}

// today returns the UTC calendar date of now as UTC midnight, the same
// representation ParseDate produces.
func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
