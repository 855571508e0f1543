package purchasing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ErrItemNotFound indicates the catalog has no item with the requested code.
var ErrItemNotFound = errors.New("purchasing: item not found")

// PGCatalog reads item details from the items table.
type PGCatalog struct {
	pool *pgxpool.Pool
}

// NewPGCatalog constructs a PostgreSQL backed catalog.
func NewPGCatalog(pool *pgxpool.Pool) *PGCatalog {
	return &PGCatalog{pool: pool}
}

// ItemDetails returns the description and standard rate of code. Missing values become "" and 0.
func (c *PGCatalog) ItemDetails(ctx context.Context, code string) (ItemDetails, error) {
	var (
		description *string
		rate        decimal.NullDecimal
	)
	err := c.pool.QueryRow(ctx, `SELECT description, standard_rate FROM items WHERE code = $1`, code).Scan(&description, &rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ItemDetails{}, ErrItemNotFound
		}
		return ItemDetails{}, fmt.Errorf("purchasing: load item %q: %w", code, err)
	}
	details := ItemDetails{UnitCost: decimal.Zero}
	if description != nil {
		details.Description = *description
	}
	if rate.Valid {
		details.UnitCost = rate.Decimal
	}
	return details, nil
}

const itemCachePrefix = "purchasing:item:"

type cachedItem struct {
	Description string          `json:"description"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// CachedCatalog keeps item details in Redis and coalesces concurrent misses.
type CachedCatalog struct {
	next   CatalogPort
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedCatalog wraps next with a Redis cache. A nil client disables caching.
func NewCachedCatalog(next CatalogPort, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCatalog{next: next, client: client, ttl: ttl, logger: logger}
}

// ItemDetails serves from cache when possible. Cache failures fall through to the catalog.
func (c *CachedCatalog) ItemDetails(ctx context.Context, code string) (ItemDetails, error) {
	if c.client == nil {
		return c.next.ItemDetails(ctx, code)
	}
	key := itemCachePrefix + code
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var item cachedItem
		if err := json.Unmarshal(raw, &item); err == nil {
			return ItemDetails{Description: item.Description, UnitCost: item.UnitCost}, nil
		}
		c.logger.Warn("decode cached item", slog.String("code", code))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("read item cache", slog.String("code", code), slog.Any("error", err))
	}

	val, err, _ := c.group.Do(code, func() (interface{}, error) {
		details, err := c.next.ItemDetails(ctx, code)
		if err != nil {
			return ItemDetails{}, err
		}
		payload, err := json.Marshal(cachedItem{Description: details.Description, UnitCost: details.UnitCost})
		if err == nil {
			if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				c.logger.Warn("write item cache", slog.String("code", code), slog.Any("error", err))
			}
		}
		return details, nil
	})
	if err != nil {
		return ItemDetails{}, err
	}
	return val.(ItemDetails), nil
}

// Invalidate drops the cached entry for code.
func (c *CachedCatalog) Invalidate(ctx context.Context, code string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, itemCachePrefix+code).Err()
}
