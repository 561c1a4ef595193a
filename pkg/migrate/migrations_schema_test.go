package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgutierrezc/shopline-backend/pkg/migrate"
)

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestInitSchemaContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init schema migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE UNIQUE INDEX idx_users_username ON users (username)",
		"CONSTRAINT items_stock_quantity_non_negative CHECK (stock_quantity >= 0)",
		"CREATE UNIQUE INDEX idx_carts_user_id ON carts (user_id)",
		"CREATE UNIQUE INDEX idx_cart_items_cart_item ON cart_items (cart_id, item_id)",
		"CONSTRAINT cart_items_quantity_positive CHECK (quantity > 0)",
		"DROP TABLE order_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSeedRolesMigrationIsIdempotent(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_seed_roles.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no seed roles migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	if !strings.Contains(string(data), "ON CONFLICT (name) DO NOTHING") {
		t.Error("seed roles migration should tolerate reruns")
	}
}
