package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mgutierrezc/shopline-backend/internal/users"
	"github.com/mgutierrezc/shopline-backend/pkg/config"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	"github.com/mgutierrezc/shopline-backend/pkg/enums"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/mgutierrezc/shopline-backend/pkg/security"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// FeedItem is one entry of the external stock feed.
type FeedItem struct {
	Category      string          `json:"category"`
	SKU           string          `json:"sku"`
	Name          string          `json:"item_name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      *string         `json:"img_url"`
}

type feedEnvelope struct {
	Data []FeedItem `json:"data"`
}

// Service bootstraps roles, the admin account, and the initial catalog.
type Service struct {
	db       *gorm.DB
	users    *users.Repository
	client   *http.Client
	seedCfg  config.SeedConfig
	adminCfg config.AdminConfig
	password config.PasswordConfig
	logg     *logger.Logger
}

// ServiceParams wires the dependencies for the seed service.
type ServiceParams struct {
	DB       *gorm.DB
	Users    *users.Repository
	Client   *http.Client
	Seed     config.SeedConfig
	Admin    config.AdminConfig
	Password config.PasswordConfig
	Logger   *logger.Logger
}

// NewService builds the seed service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	client := params.Client
	if client == nil {
		client = &http.Client{Timeout: params.Seed.FeedTimeout}
	}
	return &Service{
		db:       params.DB,
		users:    params.Users,
		client:   client,
		seedCfg:  params.Seed,
		adminCfg: params.Admin,
		password: params.Password,
		logg:     params.Logger,
	}, nil
}

// Run performs the full bootstrap: roles, admin account, and catalog feed.
func (s *Service) Run(ctx context.Context) error {
	if err := s.EnsureRoles(ctx); err != nil {
		return err
	}
	if err := s.EnsureAdmin(ctx); err != nil {
		return err
	}

	if strings.TrimSpace(s.seedCfg.FeedURL) == "" {
		s.logg.Warn(ctx, "no feed url configured, skipping catalog seed")
		return nil
	}

	items, err := s.FetchFeed(ctx)
	if err != nil {
		return err
	}
	return s.Populate(ctx, items)
}

// EnsureRoles creates the role rows the application expects.
func (s *Service) EnsureRoles(ctx context.Context) error {
	var errs error
	for _, name := range []string{enums.RoleAdmin.String(), enums.RoleUser.String()} {
		var role models.Role
		err := s.db.WithContext(ctx).
			Where("name = ?", name).
			FirstOrCreate(&role, models.Role{Name: name}).Error
		errs = multierr.Append(errs, err)
	}
	return errs
}

// EnsureAdmin creates the configured admin account if no admin exists yet.
func (s *Service) EnsureAdmin(ctx context.Context) error {
	if s.adminCfg.Username == "" || s.adminCfg.Password == "" {
		s.logg.Warn(ctx, "admin credentials not configured, skipping admin bootstrap")
		return nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", enums.RoleAdmin.String()).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := s.users.FindByUsername(ctx, s.adminCfg.Username); err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "admin username is already taken")
	} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return err
	}

	hash, err := security.HashPassword(s.adminCfg.Password, s.password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Fullname:     s.adminCfg.Fullname,
		Username:     s.adminCfg.Username,
		Email:        strings.ToLower(strings.TrimSpace(s.adminCfg.Email)),
		PasswordHash: hash,
	}
	created, err := s.users.Create(ctx, admin)
	if err != nil {
		return err
	}
	if err := s.users.AssignRole(ctx, created, enums.RoleAdmin.String()); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithUserID(ctx, created.ID.String()), "admin account created")
	return nil
}

// FetchFeed downloads the external stock feed.
func (s *Service) FetchFeed(ctx context.Context) ([]FeedItem, error) {
	if strings.TrimSpace(s.seedCfg.FeedURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock feed url is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.seedCfg.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching stock feed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("stock feed returned %d", resp.StatusCode))
	}

	var envelope feedEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding stock feed")
	}
	if envelope.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "unexpected stock feed format")
	}
	return envelope.Data, nil
}

// SetupCompleted reports whether the catalog was already populated.
func (s *Service) SetupCompleted(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Item{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Populate writes feed categories and items into the catalog. It refuses to
// run twice, and item-level failures are accumulated instead of aborting
// the whole load.
func (s *Service) Populate(ctx context.Context, items []FeedItem) error {
	done, err := s.SetupCompleted(ctx)
	if err != nil {
		return err
	}
	if done {
		return pkgerrors.New(pkgerrors.CodeConflict, "setup has already been completed")
	}

	categories := make(map[string]*models.Category)
	for _, item := range items {
		name := strings.TrimSpace(item.Category)
		if name == "" {
			continue
		}
		if _, ok := categories[name]; ok {
			continue
		}
		category := &models.Category{Name: name}
		err := s.db.WithContext(ctx).
			Where("name = ?", name).
			FirstOrCreate(category, models.Category{Name: name}).Error
		if err != nil {
			return fmt.Errorf("creating category %q: %w", name, err)
		}
		categories[name] = category
	}

	var errs error
	created := 0
	for _, entry := range items {
		category, ok := categories[strings.TrimSpace(entry.Category)]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("item %q has no category", entry.SKU))
			continue
		}
		if strings.TrimSpace(entry.SKU) == "" {
			errs = multierr.Append(errs, fmt.Errorf("item %q has no sku", entry.Name))
			continue
		}

		var existing models.Item
		err := s.db.WithContext(ctx).First(&existing, "sku = ?", entry.SKU).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			errs = multierr.Append(errs, fmt.Errorf("checking item %q: %w", entry.SKU, err))
			continue
		}

		item := models.Item{
			CategoryID:    category.ID,
			SKU:           strings.TrimSpace(entry.SKU),
			Name:          entry.Name,
			Price:         entry.Price.Round(2),
			StockQuantity: entry.StockQuantity,
			ImageURL:      entry.ImageURL,
		}
		if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
			errs = multierr.Append(errs, fmt.Errorf("creating item %q: %w", entry.SKU, err))
			continue
		}
		created++
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"categories": len(categories),
		"items":      created,
	}), "catalog seeded")
	return errs
}
