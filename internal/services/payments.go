package services

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"clinic-booking-server/internal/apperr"
	"clinic-booking-server/internal/events"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/receipts"
)

const maxPhoneLen = 15

// Amounts are stored as decimal(10,2).
var maxAmount = decimal.New(1, 8)

// PayInput carries a payment request. A nil Amount charges the default fee.
type PayInput struct {
	Method      string
	PhoneNumber string
	Amount      *decimal.Decimal
}

// PaymentService records mobile-money payments against appointments.
// Settlement is mocked: a recorded payment is immediately COMPLETED.
type PaymentService struct {
	payments      PaymentRepository
	appointments  AppointmentRepository
	events        events.Publisher
	defaultAmount decimal.Decimal
	newTxID       func() string
	log           zerolog.Logger
}

func NewPaymentService(payments PaymentRepository, appointments AppointmentRepository, pub events.Publisher, defaultAmount decimal.Decimal, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		payments:      payments,
		appointments:  appointments,
		events:        pub,
		defaultAmount: defaultAmount,
		newTxID:       uuid.NewString,
		log:           log,
	}
}

// Pay records the single payment of one of the caller's PENDING
// appointments and returns it. Concurrent attempts on the same appointment
// result in exactly one payment; the others fail with AlreadyPaid.
func (s *PaymentService) Pay(ctx context.Context, ident Identity, appointmentID string, in PayInput) (*models.Payment, error) {
	if err := requireIdentity(ident); err != nil {
		return nil, err
	}

	method, ok := models.ParsePaymentMethod(in.Method)
	if !ok {
		return nil, apperr.New(apperr.KindInvalidMethod, "payment_method must be MTN or AIRTEL")
	}

	phone := strings.TrimSpace(in.PhoneNumber)
	if err := validatePhone(phone); err != nil {
		return nil, err
	}

	amount := s.defaultAmount
	if in.Amount != nil {
		amount = *in.Amount
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	payment, err := s.payments.Record(ctx, appointmentID, ident.ownScope(), func(a *models.Appointment) (*models.Payment, error) {
		if a.IsPaid {
			return nil, apperr.New(apperr.KindAlreadyPaid, "appointment is already paid")
		}
		if a.Status != models.StatusPending {
			return nil, apperr.New(apperr.KindInvalidState, "only PENDING appointments can be paid")
		}
		return &models.Payment{
			AppointmentID: a.ID,
			UserID:        ident.UserID,
			Method:        method,
			PhoneNumber:   phone,
			Amount:        amount.Round(2),
			Status:        models.PaymentCompleted,
			TransactionID: s.newTxID(),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appointmentID).
		Str("transaction_id", payment.TransactionID).
		Str("method", string(payment.Method)).
		Msg("payment recorded")

	publish(ctx, s.log, s.events, events.Event{
		Type:          events.PaymentRecorded,
		AppointmentID: appointmentID,
		UserID:        ident.UserID,
		TransactionID: payment.TransactionID,
	})
	return payment, nil
}

// Receipt renders the PDF receipt of an appointment's payment. The
// appointment must be visible to the caller.
func (s *PaymentService) Receipt(ctx context.Context, ident Identity, appointmentID string) ([]byte, error) {
	if err := requireIdentity(ident); err != nil {
		return nil, err
	}

	appt, err := s.appointments.Get(ctx, appointmentID, ident.scope())
	if err != nil {
		return nil, err
	}
	payment, err := s.payments.FindByAppointment(ctx, appt.ID)
	if err != nil {
		return nil, err
	}

	doc, err := receipts.Render(payment, appt, payment.User.FullName)
	if err != nil {
		return nil, apperr.Internal("failed to render receipt", err)
	}
	return doc, nil
}

func validatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if len(phone) > maxPhoneLen {
		return apperr.Validation("phone_number must be at most 15 characters")
	}
	for i, r := range phone {
		if unicode.IsDigit(r) || (i == 0 && r == '+') {
			continue
		}
		return apperr.Validation("phone_number may only contain digits and a leading +")
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.Validation("amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return apperr.Validation("amount must have at most 2 decimal places")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return apperr.Validation("amount is too large")
	}
	return nil
}
