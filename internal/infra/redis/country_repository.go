package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"voyageur-express/internal/domain"
	"voyageur-express/internal/infra/memory"
)

// CountryRepository caches datasets in Redis and falls back to a loader on cache miss.
// Rows are stored as:  HSET voyageur:dataset:{version}:rows {code} {country json}
// Order is stored as:  RPUSH voyageur:dataset:{version}:order {code}...
// The order list matters because first-match hit testing depends on it.
type CountryRepository struct {
	client *redis.Client
	loader memory.CountryLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCountryRepository(client *redis.Client, loader memory.CountryLoader, ttl time.Duration) *CountryRepository {
	return &CountryRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CountryRepository) GetCountries(ctx context.Context, version string) ([]domain.Country, error) {
	if countries, ok := r.fromCache(ctx, version); ok {
		return countries, nil
	}

	result, err, _ := r.sf.Do(version, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if countries, ok := r.fromCache(ctx, version); ok {
			return countries, nil
		}

		countries, err := r.loader.LoadCountries(ctx, version)
		if err != nil {
			return nil, err
		}
		r.store(ctx, version, countries)
		return countries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Country), nil
}

// Invalidate drops a cached version, e.g. after reseeding.
func (r *CountryRepository) Invalidate(ctx context.Context, version string) error {
	return r.client.Del(ctx, r.rowsKey(version), r.orderKey(version)).Err()
}

func (r *CountryRepository) fromCache(ctx context.Context, version string) ([]domain.Country, bool) {
	pipe := r.client.Pipeline()
	orderCmd := pipe.LRange(ctx, r.orderKey(version), 0, -1)
	rowsCmd := pipe.HGetAll(ctx, r.rowsKey(version))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, false
	}

	order := orderCmd.Val()
	rows := rowsCmd.Val()
	if len(order) == 0 || len(order) != len(rows) {
		return nil, false
	}

	countries := make([]domain.Country, 0, len(order))
	for _, code := range order {
		raw, ok := rows[code]
		if !ok {
			return nil, false
		}
		var c domain.Country
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, false
		}
		countries = append(countries, c)
	}
	return countries, true
}

// store is best effort: a failed write only means the next call reloads.
func (r *CountryRepository) store(ctx context.Context, version string, countries []domain.Country) {
	if len(countries) == 0 {
		return
	}
	rowsKey, orderKey := r.rowsKey(version), r.orderKey(version)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, rowsKey, orderKey)
	codes := make([]interface{}, 0, len(countries))
	for _, c := range countries {
		raw, err := json.Marshal(c)
		if err != nil {
			return
		}
		pipe.HSet(ctx, rowsKey, c.Code, raw)
		codes = append(codes, c.Code)
	}
	pipe.RPush(ctx, orderKey, codes...)
	if ttl := r.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, rowsKey, ttl)
		pipe.Expire(ctx, orderKey, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (r *CountryRepository) rowsKey(version string) string {
	return "voyageur:dataset:" + version + ":rows"
}

func (r *CountryRepository) orderKey(version string) string {
	return "voyageur:dataset:" + version + ":order"
}

func (r *CountryRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
