package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// The round trip proves the down files tear down everything the up
// files build, and that a second up pass starts from a clean slate.
func TestMigrationsRoundTripPostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("CARETAKER_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("CARETAKER_TEST_DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	dir := filepath.Join("..", "..", "db", "migrations")

	if err := ApplyMigrations(ctx, db, dir); err != nil {
		t.Fatalf("apply up migrations (pass 1): %v", err)
	}
	if err := applyDownMigrations(ctx, db, dir); err != nil {
		t.Fatalf("apply down migrations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		t.Fatalf("clear schema_migrations: %v", err)
	}
	if err := ApplyMigrations(ctx, db, dir); err != nil {
		t.Fatalf("apply up migrations (pass 2): %v", err)
	}
}

func resetPublicSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	return err
}

// applyDownMigrations runs every *.down.sql in reverse lexical order,
// mirroring how ApplyMigrations orders the up files.
func applyDownMigrations(ctx context.Context, db *sql.DB, dir string) error {
	downs, err := filepath.Glob(filepath.Join(dir, "*.down.sql"))
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(downs)))

	for _, path := range downs {
		sqlBytes, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if sqlText := strings.TrimSpace(string(sqlBytes)); sqlText != "" {
			if _, err := db.ExecContext(ctx, sqlText); err != nil {
				return err
			}
		}
	}
	return nil
}
