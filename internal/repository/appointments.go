package repository

import (
	"context"

	"gorm.io/gorm"

	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/services"
)

const appointmentNotFound = "appointment not found"

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// scoped applies the ownership predicate. Ownership is part of the lookup
// so an appointment outside the scope is indistinguishable from a missing one.
func scoped(tx *gorm.DB, scope services.AppointmentScope) *gorm.DB {
	if scope.OwnerID != "" {
		return tx.Where("user_id = ?", scope.OwnerID)
	}
	return tx
}

func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	return translate(r.db.WithContext(ctx).Omit("User", "Payment").Create(a).Error, appointmentNotFound)
}

func (r *AppointmentRepository) Get(ctx context.Context, id string, scope services.AppointmentScope) (*models.Appointment, error) {
	var a models.Appointment
	err := scoped(r.db.WithContext(ctx), scope).Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, translate(err, appointmentNotFound)
	}
	return &a, nil
}

func (r *AppointmentRepository) List(ctx context.Context, scope services.AppointmentScope, status models.AppointmentStatus) ([]models.Appointment, error) {
	query := scoped(r.db.WithContext(ctx), scope)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	appointments := []models.Appointment{}
	if err := query.Order("created_at asc").Order("id asc").Find(&appointments).Error; err != nil {
		return nil, translate(err, appointmentNotFound)
	}
	return appointments, nil
}

func (r *AppointmentRepository) CountByStatus(ctx context.Context, scope services.AppointmentScope) (map[models.AppointmentStatus]int64, error) {
	var rows []struct {
		Status models.AppointmentStatus
		Count  int64
	}
	err := scoped(r.db.WithContext(ctx).Model(&models.Appointment{}), scope).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, appointmentNotFound)
	}

	counts := make(map[models.AppointmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, id string, scope services.AppointmentScope, mutate func(*models.Appointment) error) (*models.Appointment, error) {
	var a models.Appointment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := scoped(tx.Clauses(forUpdate), scope).Where("id = ?", id).First(&a).Error; err != nil {
			return err
		}
		if err := mutate(&a); err != nil {
			return err
		}
		return tx.Model(&a).Updates(map[string]interface{}{
			"status": a.Status,
			"notes":  a.Notes,
		}).Error
	})
	if err != nil {
		return nil, translate(err, appointmentNotFound)
	}
	return &a, nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string, scope services.AppointmentScope, guard func(*models.Appointment) error) (*models.Appointment, error) {
	var a models.Appointment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := scoped(tx.Clauses(forUpdate), scope).Where("id = ?", id).First(&a).Error; err != nil {
			return err
		}
		if err := guard(&a); err != nil {
			return err
		}
		return tx.Delete(&models.Appointment{}, "id = ?", a.ID).Error
	})
	if err != nil {
		return nil, translate(err, appointmentNotFound)
	}
	return &a, nil
}
