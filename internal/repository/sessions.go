package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"clinic-booking-server/internal/models"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	return translate(r.db.WithContext(ctx).Omit("User").Create(s).Error, "session not found")
}

func (r *SessionRepository) FindActive(ctx context.Context, token, userID string, now time.Time) (*models.Session, error) {
	var s models.Session
	err := r.db.WithContext(ctx).
		Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", token, userID, false, now).
		First(&s).Error
	if err != nil {
		return nil, translate(err, "session not found")
	}
	return &s, nil
}

func (r *SessionRepository) Rotate(ctx context.Context, old, next *models.Session) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Session{}).
			Where("id = ? AND is_revoked = ?", old.ID, false).
			Update("is_revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Omit("User").Create(next).Error
	})
	return translate(err, "session not found")
}

func (r *SessionRepository) Revoke(ctx context.Context, token string) error {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("token = ? AND is_revoked = ?", token, false).
		Updates(map[string]interface{}{"is_revoked": true, "expires_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error, "session not found")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "session not found")
	}
	return nil
}
