package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SecondList/EcommerceAPI/internal/apperr"
	"github.com/SecondList/EcommerceAPI/internal/models"
)

func (r *AuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(token).Error
}

func (r *AuthRepo) FindRefreshToken(ctx context.Context, value string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", value).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: refresh token not found", apperr.ErrInvalidToken)
		}
		return nil, err
	}
	return &token, nil
}

// RotateRefreshToken marks the old token used and stores its replacement in
// one transaction. The guarded UPDATE makes concurrent rotations of the same
// token race safely: only the call that flips is_used wins.
func (r *AuthRepo) RotateRefreshToken(ctx context.Context, oldID uint, newToken *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND is_used = ? AND is_revoked = ? AND expires_at > ?",
				oldID, false, false, time.Now()).
			Update("is_used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: refresh token already consumed", apperr.ErrInvalidToken)
		}

		return tx.Create(newToken).Error
	})
}

func (r *AuthRepo) RevokeRefreshToken(ctx context.Context, value string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", value).
		Update("is_revoked", true).Error
}
