package fieldconfig

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/matthewbaird/backoffice/internal/catalog"
	"github.com/matthewbaird/backoffice/internal/fieldstore"
)

// DefaultTTL is how long a resolved category stays fresh.
const DefaultTTL = 5 * time.Minute

type cacheEntry struct {
	config    *Config
	fetchedAt time.Time
}

// Resolver resolves and caches the effective configuration per category for
// one tenant. Construct one per process and share it.
type Resolver struct {
	lister   fieldstore.Lister
	tenantID uuid.UUID
	catalog  *catalog.Catalog
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger

	cache *ttlcache.Cache[string, cacheEntry]
	group singleflight.Group
	empty *Config

	// gen counts invalidations per category. A read only fills the cache when
	// no invalidation happened while it was in flight.
	mu  sync.Mutex
	gen map[string]uint64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCatalog replaces the product catalog used for defaults.
func WithCatalog(c *catalog.Catalog) Option {
	return func(r *Resolver) { r.catalog = c }
}

// WithClock replaces time.Now for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger used for read failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithTimeout bounds each store read. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// NewResolver creates a Resolver reading overrides for tenantID from lister.
// A non-positive ttl selects DefaultTTL.
func NewResolver(lister fieldstore.Lister, tenantID uuid.UUID, ttl time.Duration, opts ...Option) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Resolver{
		lister:   lister,
		tenantID: tenantID,
		catalog:  catalog.Products,
		ttl:      ttl,
		now:      time.Now,
		logger:   slog.Default(),
		gen:      make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	// Freshness is judged against r.now in fresh; the cache itself never
	// expires entries and no janitor goroutine is started.
	r.cache = ttlcache.New[string, cacheEntry]()
	r.empty = NewConfig(r.catalog, "", nil)
	return r
}

// Catalog returns the catalog the resolver merges against.
func (r *Resolver) Catalog() *catalog.Catalog {
	return r.catalog
}

// Resolve returns the effective configuration of category. An empty category
// yields the all-defaults configuration without touching the store. A store
// failure is logged and also yields the all-defaults configuration; that
// result is not cached.
func (r *Resolver) Resolve(ctx context.Context, category string) *Config {
	if category == "" {
		return r.empty
	}
	if cfg, ok := r.fresh(category); ok {
		return cfg
	}
	v, _, _ := r.group.Do(category, func() (any, error) {
		if cfg, ok := r.fresh(category); ok {
			return cfg, nil
		}
		return r.load(ctx, category), nil
	})
	return v.(*Config)
}

// Invalidate drops the cached entry for category and re-resolves it at once,
// so the next caller sees the store's current state.
func (r *Resolver) Invalidate(ctx context.Context, category string) *Config {
	r.mu.Lock()
	r.gen[category]++
	r.cache.Delete(category)
	r.mu.Unlock()
	r.group.Forget(category)
	return r.Resolve(ctx, category)
}

func (r *Resolver) fresh(category string) (*Config, bool) {
	item := r.cache.Get(category)
	if item == nil {
		return nil, false
	}
	entry := item.Value()
	if r.now().Sub(entry.fetchedAt) >= r.ttl {
		return nil, false
	}
	return entry.config, true
}

func (r *Resolver) load(ctx context.Context, category string) *Config {
	r.mu.Lock()
	gen := r.gen[category]
	r.mu.Unlock()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	settings, err := r.lister.ListFieldSettings(ctx, r.tenantID, category)
	if err != nil {
		r.logger.Warn("field settings read failed, falling back to defaults",
			slog.String("tenant", r.tenantID.String()),
			slog.String("category", category),
			slog.Any("error", err))
		return NewConfig(r.catalog, category, nil)
	}
	cfg := NewConfig(r.catalog, category, settings)
	r.mu.Lock()
	if r.gen[category] == gen {
		r.cache.Set(category, cacheEntry{config: cfg, fetchedAt: r.now()}, ttlcache.NoTTL)
	}
	r.mu.Unlock()
	return cfg
}
