package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SecondList/EcommerceAPI/internal/apperr"
	"github.com/SecondList/EcommerceAPI/internal/models"
)

type AuthRepo struct {
	DB *gorm.DB
}

func (r *AuthRepo) CreateUser(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		// A concurrent registration can slip between the lookup and the
		// insert; the unique index rejects the loser.
		if errors.Is(tx.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: email already in use", apperr.ErrConflict)
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: email already in use", apperr.ErrConflict)
	}
	return nil
}

func (r *AuthRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (r *AuthRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}
