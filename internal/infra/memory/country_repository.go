package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"voyageur-express/internal/dataset"
	"voyageur-express/internal/domain"
)

// CountryLoader fetches a dataset version from a backing store (e.g., Postgres).
type CountryLoader interface {
	LoadCountries(ctx context.Context, version string) ([]domain.Country, error)
}

// CountryRepository caches datasets with TTL to avoid repeated DB hits.
type CountryRepository struct {
	loader CountryLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedDataset
}

type cachedDataset struct {
	countries []domain.Country
	expiresAt time.Time
}

func NewCountryRepository(loader CountryLoader, ttl time.Duration) *CountryRepository {
	return &CountryRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedDataset),
	}
}

// GetCountries returns a copy of the cached dataset, loading it on miss.
func (r *CountryRepository) GetCountries(ctx context.Context, version string) ([]domain.Country, error) {
	if countries, ok := r.lookup(version); ok {
		return countries, nil
	}

	result, err, _ := r.sf.Do(version, func() (interface{}, error) {
		if countries, ok := r.lookup(version); ok {
			return countries, nil
		}

		countries, err := r.loader.LoadCountries(ctx, version)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[version] = cachedDataset{
			countries: countries,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return clone(countries), nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Country), nil
}

func (r *CountryRepository) lookup(version string) ([]domain.Country, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[version]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return clone(entry.countries), true
}

func (r *CountryRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCountryLoader serves datasets from memory (built-in table, tests, demos).
type StaticCountryLoader struct {
	datasets map[string][]domain.Country
}

func NewStaticCountryLoader(datasets map[string][]domain.Country) *StaticCountryLoader {
	return &StaticCountryLoader{datasets: datasets}
}

// NewBuiltInLoader serves the compiled-in dataset under dataset.Version.
func NewBuiltInLoader() *StaticCountryLoader {
	return NewStaticCountryLoader(map[string][]domain.Country{
		dataset.Version: dataset.Countries(),
	})
}

func (l *StaticCountryLoader) LoadCountries(_ context.Context, version string) ([]domain.Country, error) {
	if countries, ok := l.datasets[version]; ok {
		return clone(countries), nil
	}
	return nil, domain.ErrDatasetNotFound
}

func clone(countries []domain.Country) []domain.Country {
	out := make([]domain.Country, len(countries))
	copy(out, countries)
	return out
}
