package discount

import (
	"context"
	"fmt"
	"strings"

	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"gorm.io/gorm"
)

// Service recomputes discounts whenever account/email membership changes.
type Service interface {
	// Recompute recalculates and persists the discount for every account
	// sharing each of the provided emails. When tx is non-nil the work runs
	// inside that transaction.
	Recompute(ctx context.Context, tx *gorm.DB, emails ...string) error
}

// ServiceParams wires the dependencies for the discount service.
type ServiceParams struct {
	Repo   *Repository
	Logger *logger.Logger
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService builds the discount service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) Recompute(ctx context.Context, tx *gorm.DB, emails ...string) error {
	repo := s.repo.WithTx(tx)

	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		if _, done := seen[email]; done {
			continue
		}
		seen[email] = struct{}{}

		count, err := repo.CountByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("counting accounts for %s: %w", email, err)
		}

		percentage := Percentage(int(count))
		if err := repo.SetDiscountByEmail(ctx, email, percentage); err != nil {
			return fmt.Errorf("updating discount for %s: %w", email, err)
		}

		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"accounts": count,
			"discount": percentage,
		}), "discount recomputed")
	}
	return nil
}
