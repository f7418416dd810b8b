package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-booking-server/internal/apperr"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/services"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Record serializes payers on the appointment row lock; the unique index on
// payments.appointment_id backs it up should two transactions slip past.
func (r *PaymentRepository) Record(ctx context.Context, appointmentID string, scope services.AppointmentScope, build func(*models.Appointment) (*models.Payment, error)) (*models.Payment, error) {
	var payment *models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Appointment
		if err := scoped(tx.Clauses(forUpdate), scope).Where("id = ?", appointmentID).First(&a).Error; err != nil {
			return err
		}

		p, err := build(&a)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.New(apperr.KindAlreadyPaid, "appointment is already paid")
			}
			return err
		}

		err = tx.Model(&models.Appointment{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
			"is_paid":        true,
			"payment_method": p.Method,
		}).Error
		if err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, translate(err, appointmentNotFound)
	}
	return payment, nil
}

func (r *PaymentRepository) FindByAppointment(ctx context.Context, appointmentID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).Preload("User").Where("appointment_id = ?", appointmentID).First(&p).Error
	if err != nil {
		return nil, translate(err, "no payment recorded for this appointment")
	}
	return &p, nil
}
