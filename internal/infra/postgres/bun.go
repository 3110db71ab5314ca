package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"voyageur-express/internal/domain"
	pgmigrations "voyageur-express/internal/infra/postgres/migrations"
)

// OpenBun opens a bun handle over the pgdriver connector.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies every pending migration and returns the applied group.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}

type countryDataset struct {
	bun.BaseModel `bun:"table:country_datasets"`

	Version   string           `bun:"version,pk"`
	Data      []domain.Country `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time        `bun:"updated_at,notnull"`
}

// SeedDataset inserts or replaces one dataset version.
func SeedDataset(ctx context.Context, db *bun.DB, version string, countries []domain.Country) error {
	row := &countryDataset{
		Version:   version,
		Data:      countries,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := db.NewInsert().
		Model(row).
		On("CONFLICT (version) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("seed dataset %s: %w", version, err)
	}
	return nil
}
