// Package cache persists finished itineraries and serves exact-match repeats.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/models"
)

// ErrNotFound is returned by entry stores when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// EntryStore persists one entry per key; Save overwrites.
type EntryStore interface {
	Load(ctx context.Context, key string) (*models.CacheEntry, error)
	Save(ctx context.Context, key string, entry models.CacheEntry) error
}

// Key is the storage key for a (location, category, days) triple.
func Key(location, category string, days int) string {
	return fmt.Sprintf("%s_%s_%d", location, category, days)
}

// ResultCache applies the exact-match policy on top of an EntryStore. Store
// failures never reach callers: reads degrade to misses and writes are logged.
type ResultCache struct {
	store  EntryStore
	logger *zap.Logger
	now    func() time.Time
}

func NewResultCache(store EntryStore, logger *zap.Logger) *ResultCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultCache{store: store, logger: logger.Named("cache"), now: time.Now}
}

// Lookup returns the stored itinerary only when location, category and days
// address an entry whose interests and budget equal the request's exactly.
func (c *ResultCache) Lookup(ctx context.Context, req models.ItineraryRequest) (string, bool) {
	if c == nil || c.store == nil {
		return "", false
	}
	key := Key(req.Location, req.Category, req.Days)
	entry, err := c.store.Load(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		recordLookup(ctx, "miss")
		c.logger.Debug("cache miss", zap.String("key", key))
		return "", false
	case err != nil:
		recordLookup(ctx, "error")
		c.logger.Warn("cache read failed; treating as miss", zap.String("key", key), zap.Error(err))
		return "", false
	case entry == nil:
		recordLookup(ctx, "miss")
		return "", false
	}
	if entry.Location != req.Location || entry.Category != req.Category || entry.Days != req.Days ||
		!req.SameVariant(entry.Interests, entry.Budget) {
		recordLookup(ctx, "variant_mismatch")
		c.logger.Debug("cache entry is for a different variant", zap.String("key", key))
		return "", false
	}
	recordLookup(ctx, "hit")
	c.logger.Info("cache hit", zap.String("key", key))
	return entry.Itinerary, true
}

// Store records the itinerary, replacing any previous variant for the key.
func (c *ResultCache) Store(ctx context.Context, req models.ItineraryRequest, itinerary string) {
	if c == nil || c.store == nil {
		return
	}
	key := Key(req.Location, req.Category, req.Days)
	entry := models.CacheEntry{
		Location:  req.Location,
		Category:  req.Category,
		Days:      req.Days,
		Interests: req.Interests,
		Budget:    req.Budget,
		Itinerary: itinerary,
		StoredAt:  c.now().UTC(),
	}
	if err := c.store.Save(ctx, key, entry); err != nil {
		recordWrite(ctx, err)
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	recordWrite(ctx, nil)
	c.logger.Debug("cache stored", zap.String("key", key), zap.Int("bytes", len(itinerary)))
}

// NopStore never finds anything and discards writes.
type NopStore struct{}

func (NopStore) Load(context.Context, string) (*models.CacheEntry, error) { return nil, ErrNotFound }

func (NopStore) Save(context.Context, string, models.CacheEntry) error { return nil }
