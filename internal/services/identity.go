// Package services implements registration, the appointment lifecycle and
// payment recording. Every operation receives the caller's Identity
// explicitly and applies the access policy itself.
package services

import (
	"context"

	"github.com/rs/zerolog"

	"clinic-booking-server/internal/apperr"
	"clinic-booking-server/internal/events"
)

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID   string
	Email    string
	Elevated bool
}

// scope returns the appointments visible to the identity: everything for
// elevated callers, otherwise only the caller's own.
func (i Identity) scope() AppointmentScope {
	if i.Elevated {
		return AppointmentScope{}
	}
	return i.ownScope()
}

// ownScope restricts to the caller's own appointments regardless of elevation.
func (i Identity) ownScope() AppointmentScope {
	return AppointmentScope{OwnerID: i.UserID}
}

func requireIdentity(i Identity) error {
	if i.UserID == "" {
		return apperr.New(apperr.KindUnauthenticated, "authentication required")
	}
	return nil
}

// publish emits evt after the change has been committed. Delivery failures
// are logged and never reported to the caller.
func publish(ctx context.Context, log zerolog.Logger, pub events.Publisher, evt events.Event) {
	if err := pub.Publish(ctx, evt); err != nil {
		log.Warn().Err(err).
			Str("event", evt.Type).
			Str("appointment_id", evt.AppointmentID).
			Msg("event not published")
	}
}
