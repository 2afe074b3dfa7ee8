package migrate_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.Validate(migrate.Migrations()); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
}

func TestOrdersMigrationContainsSchemas(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders_tables.sql"))
	if err != nil || len(matches) == 0 {
		t.Fatalf("no orders migration file found: %v", err)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_lines",
		"paypal_order_id text",
		"customer_name varchar(100)",
		"'pending', 'confirmed', 'processing', 'shipped', 'completed', 'cancelled'",
		"CREATE INDEX IF NOT EXISTS idx_orders_paypal_order_id",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Delivery-Zone Slug")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_delivery_zone_slug.sql") {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("validate new migration: %v", err)
	}
}

func TestValidateRejectsMissingDownSection(t *testing.T) {
	fsys := fstest.MapFS{
		"20260401000000_add_notes.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	if err := migrate.Validate(fsys); err == nil || !strings.Contains(err.Error(), "-- +goose Down") {
		t.Fatalf("expected missing down section error, got %v", err)
	}
}

func TestValidateRejectsDuplicateVersions(t *testing.T) {
	body := []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")
	fsys := fstest.MapFS{
		"20260401000000_a.sql": {Data: body},
		"20260401000000_b.sql": {Data: body},
	}
	if err := migrate.Validate(fsys); err == nil || !strings.Contains(err.Error(), "duplicate migration version") {
		t.Fatalf("expected duplicate version error, got %v", err)
	}
}

func TestRunnerAppliesAndRollsBack(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}

	fsys := fstest.MapFS{
		"20260401000000_create_notes.sql": {Data: []byte("-- +goose Up\nCREATE TABLE notes (id integer);\n-- +goose Down\nDROP TABLE notes;\n")},
		"20260402000000_create_tags.sql":  {Data: []byte("-- +goose Up\nCREATE TABLE tags (id integer);\n-- +goose Down\nDROP TABLE tags;\n")},
	}
	runner, err := migrate.NewRunner(sqlDB, goose.DialectSQLite3, fsys, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	ctx := context.Background()

	if err := runner.Up(ctx); err != nil {
		t.Fatalf("up: %v", err)
	}
	if version, err := runner.Version(ctx); err != nil || version != 20260402000000 {
		t.Fatalf("expected version 20260402000000, got %d err=%v", version, err)
	}

	if err := runner.MigrateTo(ctx, 20260401000000); err != nil {
		t.Fatalf("migrate to: %v", err)
	}
	statuses, err := runner.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(statuses) != 2 || !statuses[0].Applied || statuses[1].Applied {
		t.Fatalf("expected only the first migration applied, got %+v", statuses)
	}

	if err := runner.Down(ctx); err != nil {
		t.Fatalf("down: %v", err)
	}
	if version, err := runner.Version(ctx); err != nil || version != 0 {
		t.Fatalf("expected version 0, got %d err=%v", version, err)
	}
}
