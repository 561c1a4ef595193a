package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/internal/cart"
	"github.com/mgutierrezc/shopline-backend/internal/discount"
	"github.com/mgutierrezc/shopline-backend/pkg/config"
	"github.com/mgutierrezc/shopline-backend/pkg/db"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/mgutierrezc/shopline-backend/pkg/security"
	"gorm.io/gorm"
)

// MaxAccountsPerEmail caps how many accounts may share one email address.
const MaxAccountsPerEmail = 4

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes profile management operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	Delete(ctx context.Context, userID uuid.UUID) error
	ListAll(ctx context.Context) ([]UserDTO, error)
}

// UpdateUserInput holds optional mutation values for a profile.
type UpdateUserInput struct {
	Fullname *string
	Username *string
	Email    *string
	Password *string
}

// ServiceParams wires the dependencies for the user service.
type ServiceParams struct {
	Tx        txRunner
	Repo      *Repository
	CartRepo  *cart.Repository
	Discounts discount.Service
	Password  config.PasswordConfig
	Logger    *logger.Logger
}

type service struct {
	tx        txRunner
	repo      *Repository
	cartRepo  *cart.Repository
	discounts discount.Service
	password  config.PasswordConfig
	logg      *logger.Logger
}

// NewService builds the user service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Discounts == nil {
		return nil, fmt.Errorf("discount service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        params.Tx,
		repo:      params.Repo,
		cartRepo:  params.CartRepo,
		discounts: params.Discounts,
		password:  params.Password,
		logg:      params.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToDTO(user), nil
}

// Update mutates the profile. An email change re-tiers the discount for
// both the old and the new email group inside the same transaction.
func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		oldEmail := user.Email
		emailChanged := false

		if input.Fullname != nil {
			fullname := strings.TrimSpace(*input.Fullname)
			if fullname == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "fullname cannot be empty")
			}
			user.Fullname = fullname
		}
		if input.Username != nil {
			username := strings.TrimSpace(*input.Username)
			if username == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "username cannot be empty")
			}
			user.Username = username
		}
		if input.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*input.Email))
			if email == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
			}
			if email != oldEmail {
				count, err := repo.CountByEmail(ctx, email)
				if err != nil {
					return err
				}
				if count >= MaxAccountsPerEmail {
					return pkgerrors.New(pkgerrors.CodeConflict, "email already registered with the maximum number of accounts")
				}
				user.Email = email
				emailChanged = true
			}
		}
		if input.Password != nil {
			hash, err := security.HashPassword(*input.Password, s.password)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
			}
			user.PasswordHash = hash
		}

		if _, err := repo.Save(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "username is already taken")
			}
			return err
		}

		if emailChanged {
			return s.discounts.Recompute(ctx, tx, oldEmail, user.Email)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "user updated")
	return s.Get(ctx, userID)
}

// Delete removes the account and its cart, then re-tiers the discount for
// the remaining accounts on the same email.
func (s *service) Delete(ctx context.Context, userID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		email := user.Email

		if err := s.cartRepo.WithTx(tx).DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, userID); err != nil {
			return err
		}

		return s.discounts.Recompute(ctx, tx, email)
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "user deleted")
	return nil
}

func (s *service) ListAll(ctx context.Context) ([]UserDTO, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]UserDTO, 0, len(list))
	for i := range list {
		dtos = append(dtos, *ToDTO(&list[i]))
	}
	return dtos, nil
}
