package discount

import (
	"context"

	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads and writes the discount column on users.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CountByEmail returns how many accounts currently share the email address.
func (r *Repository) CountByEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count, err
}

// SetDiscountByEmail writes the discount percentage onto every account
// sharing the email address.
func (r *Repository) SetDiscountByEmail(ctx context.Context, email string, percentage int) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("discount", percentage).Error
}
