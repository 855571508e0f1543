package purchasing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	mu    sync.Mutex
	items map[string]ItemDetails
	calls int
}

func (s *stubCatalog) ItemDetails(ctx context.Context, code string) (ItemDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	item, ok := s.items[code]
	if !ok {
		return ItemDetails{}, ErrItemNotFound
	}
	return item, nil
}

func newCachedCatalog(t *testing.T, next CatalogPort) (*CachedCatalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedCatalog(next, client, time.Minute, nil), mr
}

func TestCachedCatalogServesSecondLookupFromRedis(t *testing.T) {
	stub := &stubCatalog{items: map[string]ItemDetails{"TMT-12": {Description: "TMT bar 12mm", UnitCost: dec("54.25")}}}
	catalog, mr := newCachedCatalog(t, stub)
	ctx := context.Background()

	first, err := catalog.ItemDetails(ctx, "TMT-12")
	require.NoError(t, err)
	second, err := catalog.ItemDetails(ctx, "TMT-12")
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "TMT bar 12mm", second.Description)
	requireDecimal(t, "54.25", second.UnitCost)
	requireDecimal(t, first.UnitCost.String(), second.UnitCost)
	assert.True(t, mr.Exists(itemCachePrefix+"TMT-12"))
	assert.Equal(t, time.Minute, mr.TTL(itemCachePrefix+"TMT-12"))
}

func TestCachedCatalogDoesNotCacheMissingItems(t *testing.T) {
	stub := &stubCatalog{items: map[string]ItemDetails{}}
	catalog, mr := newCachedCatalog(t, stub)

	_, err := catalog.ItemDetails(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrItemNotFound)
	_, err = catalog.ItemDetails(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrItemNotFound)

	assert.Equal(t, 2, stub.calls)
	assert.False(t, mr.Exists(itemCachePrefix+"NOPE"))
}

func TestCachedCatalogInvalidate(t *testing.T) {
	stub := &stubCatalog{items: map[string]ItemDetails{"HR-COIL": {Description: "HR coil", UnitCost: dec("48")}}}
	catalog, _ := newCachedCatalog(t, stub)
	ctx := context.Background()

	_, err := catalog.ItemDetails(ctx, "HR-COIL")
	require.NoError(t, err)
	stub.items["HR-COIL"] = ItemDetails{Description: "HR coil", UnitCost: dec("50")}
	require.NoError(t, catalog.Invalidate(ctx, "HR-COIL"))

	details, err := catalog.ItemDetails(ctx, "HR-COIL")
	require.NoError(t, err)
	requireDecimal(t, "50", details.UnitCost)
	assert.Equal(t, 2, stub.calls)
}

func TestCachedCatalogFallsThroughWhenRedisDown(t *testing.T) {
	stub := &stubCatalog{items: map[string]ItemDetails{"WIRE": {Description: "Binding wire", UnitCost: dec("70")}}}
	catalog, mr := newCachedCatalog(t, stub)
	mr.Close()

	details, err := catalog.ItemDetails(context.Background(), "WIRE")
	require.NoError(t, err)
	assert.Equal(t, "Binding wire", details.Description)
}

func TestCachedCatalogWithoutClient(t *testing.T) {
	stub := &stubCatalog{items: map[string]ItemDetails{"WIRE": {Description: "Binding wire"}}}
	catalog := NewCachedCatalog(stub, nil, time.Minute, nil)

	_, err := catalog.ItemDetails(context.Background(), "WIRE")
	require.NoError(t, err)
	_, err = catalog.ItemDetails(context.Background(), "WIRE")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls)
	require.NoError(t, catalog.Invalidate(context.Background(), "WIRE"))
}
