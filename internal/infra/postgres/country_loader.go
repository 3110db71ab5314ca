package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"voyageur-express/internal/domain"
)

// CountryLoader loads a dataset version stored as a JSONB array from Postgres.
type CountryLoader struct {
	pool *pgxpool.Pool
}

func NewCountryLoader(pool *pgxpool.Pool) *CountryLoader {
	return &CountryLoader{pool: pool}
}

func (l *CountryLoader) LoadCountries(ctx context.Context, version string) ([]domain.Country, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM country_datasets WHERE version=$1`, version).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatasetNotFound, version)
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	var countries []domain.Country
	if err := json.Unmarshal(raw, &countries); err != nil {
		return nil, fmt.Errorf("unmarshal dataset: %w", err)
	}
	return countries, nil
}
