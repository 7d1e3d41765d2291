package repo

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/minjcho/auth-service/internal/models"
)

// Revoke is idempotent: revoking an already-revoked token is a no-op.
func (r *GormRepo) Revoke(ctx context.Context, token string, reason models.RevokeReason, at time.Time) error {
	entry := models.TokenBlacklist{
		Token:     sha256Hex(token),
		Reason:    reason,
		CreatedAt: at,
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
}

func (r *GormRepo) IsRevoked(ctx context.Context, token string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.TokenBlacklist{}).
		Where("token = ?", sha256Hex(token)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) PruneBlacklist(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&models.TokenBlacklist{})
	return res.RowsAffected, res.Error
}
