package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"clinic-booking-server/internal/apperr"
	"clinic-booking-server/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.New(apperr.KindDuplicateAccount, "user with this email already exists")
		}

		if err := tx.Omit("Profile").Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.New(apperr.KindDuplicateAccount, "user with this email already exists")
			}
			return err
		}

		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
	return translate(err, "user not found")
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Profile").Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translate(err, "user not found")
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Profile").First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "user not found")
	}
	return &user, nil
}
