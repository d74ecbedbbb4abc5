package catalog

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/rs/zerolog"
)

const (
	cacheKey   = "products"
	defaultTTL = 5 * time.Minute
)

// Catalog serves the product list from a loadable cache in front of a
// Source. When the source fails the built-in list is served instead and
// nothing is cached, so the next call retries the source.
type Catalog struct {
	cache    *cache.LoadableCache[[]Product]
	fallback []Product
	logger   zerolog.Logger
}

func New(src Source, ttl time.Duration, logger zerolog.Logger) (*Catalog, error) {
	if src == nil {
		src = StaticSource(Default())
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e3,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: create ristretto cache: %w", err)
	}

	logger = logger.With().Str("component", "catalog").Logger()
	load := func(ctx context.Context, key any) ([]Product, []store.Option, error) {
		products, err := src.Products(ctx)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug().Int("count", len(products)).Msg("catalog loaded")
		return products, []store.Option{store.WithExpiration(ttl), store.WithCost(int64(len(products)))}, nil
	}

	return &Catalog{
		cache:    cache.NewLoadable[[]Product](load, cache.New[[]Product](ristretto_store.NewRistretto(rc))),
		fallback: Default(),
		logger:   logger,
	}, nil
}

// Products returns a copy of the current product list.
func (c *Catalog) Products(ctx context.Context) []Product {
	products, err := c.cache.Get(ctx, cacheKey)
	if err != nil || len(products) == 0 {
		if err != nil {
			c.logger.Warn().Err(err).Msg("catalog source failed, serving built-in list")
		}
		return slices.Clone(c.fallback)
	}
	return slices.Clone(products)
}

// Lookup finds a product by its exact code.
func (c *Catalog) Lookup(ctx context.Context, code string) (Product, bool) {
	for _, p := range c.Products(ctx) {
		if p.Code == code {
			return p, true
		}
	}
	return Product{}, false
}

// Invalidate drops the cached list.
func (c *Catalog) Invalidate(ctx context.Context) error {
	return c.cache.Delete(ctx, cacheKey)
}

func (c *Catalog) Close() error {
	return c.cache.Close()
}
