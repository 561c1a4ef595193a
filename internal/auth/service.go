package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mgutierrezc/shopline-backend/internal/cart"
	"github.com/mgutierrezc/shopline-backend/internal/discount"
	"github.com/mgutierrezc/shopline-backend/internal/users"
	"github.com/mgutierrezc/shopline-backend/pkg/auth"
	"github.com/mgutierrezc/shopline-backend/pkg/auth/session"
	"github.com/mgutierrezc/shopline-backend/pkg/config"
	"github.com/mgutierrezc/shopline-backend/pkg/db"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	"github.com/mgutierrezc/shopline-backend/pkg/enums"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/mgutierrezc/shopline-backend/pkg/security"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// Service exposes registration and session lifecycle operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, accessID string) error
	Refresh(ctx context.Context, accessToken, refreshToken string) (*LoginResult, error)
}

// RegisterInput holds the validated payload to create an account.
type RegisterInput struct {
	Fullname string
	Username string
	Email    string
	Password string
}

// LoginInput holds the credentials presented at login.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult carries the freshly minted token pair and the account.
type LoginResult struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	User         users.UserDTO `json:"user"`
}

// ServiceParams wires the dependencies for the auth service.
type ServiceParams struct {
	Tx        txRunner
	Users     *users.Repository
	CartRepo  *cart.Repository
	Discounts discount.Service
	Sessions  sessionManager
	JWT       config.JWTConfig
	Password  config.PasswordConfig
	Logger    *logger.Logger
}

type service struct {
	tx        txRunner
	users     *users.Repository
	cartRepo  *cart.Repository
	discounts discount.Service
	sessions  sessionManager
	jwt       config.JWTConfig
	password  config.PasswordConfig
	logg      *logger.Logger
}

// NewService builds the auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Discounts == nil {
		return nil, fmt.Errorf("discount service required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        params.Tx,
		users:     params.Users,
		cartRepo:  params.CartRepo,
		discounts: params.Discounts,
		sessions:  params.Sessions,
		jwt:       params.JWT,
		password:  params.Password,
		logg:      params.Logger,
	}, nil
}

// Register creates the account, its cart, and the default role assignment,
// then re-tiers the discount for the email group. Everything runs in one
// transaction.
func (s *service) Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error) {
	fullname := strings.TrimSpace(input.Fullname)
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if fullname == "" || username == "" || email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fullname, username, email, and password are required")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)

		count, err := repo.CountByEmail(ctx, email)
		if err != nil {
			return err
		}
		if count >= users.MaxAccountsPerEmail {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered with the maximum number of accounts")
		}

		user := &models.User{
			Fullname:     fullname,
			Username:     username,
			Email:        email,
			PasswordHash: hash,
		}
		created, err = repo.Create(ctx, user)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "username is already taken")
			}
			return err
		}

		if err := repo.AssignRole(ctx, created, enums.RoleUser.String()); err != nil {
			return err
		}
		if _, err := s.cartRepo.WithTx(tx).Create(ctx, &models.Cart{UserID: created.ID}); err != nil {
			return err
		}

		return s.discounts.Recompute(ctx, tx, email)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, created.ID.String()), "user registered")
	user, err := s.users.FindByID(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	return users.ToDTO(user), nil
}

// Login verifies the credentials and mints an access/refresh token pair
// bound to a new server-side session.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid username or password")
		}
		return nil, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid username or password")
	}

	dto := users.ToDTO(user)
	return s.issueTokens(ctx, *dto)
}

// Logout revokes the server-side session for the token's jti.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id required")
	}
	return s.sessions.Revoke(ctx, accessID)
}

// Refresh rotates the session named by the (possibly expired) access token
// and mints a fresh token pair for the same account.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*LoginResult, error) {
	claims, err := auth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	dto := users.ToDTO(user)

	token, err := auth.MintAccessToken(s.jwt, time.Now().UTC(), auth.AccessTokenPayload{
		UserID: dto.ID,
		Role:   dto.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, RefreshToken: newRefresh, User: *dto}, nil
}

func (s *service) issueTokens(ctx context.Context, dto users.UserDTO) (*LoginResult, error) {
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(s.jwt, time.Now().UTC(), auth.AccessTokenPayload{
		UserID: dto.ID,
		Role:   dto.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, err
	}

	refresh, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, dto.ID.String()), "user logged in")
	return &LoginResult{Token: token, RefreshToken: refresh, User: dto}, nil
}
