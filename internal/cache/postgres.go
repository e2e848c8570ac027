package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/mohammad-safakhou/itinerary/models"
)

// PostgresStore keeps entries in the itinerary_cache table (see migrations/).
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore opens and pings the database.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Load(ctx context.Context, key string) (*models.CacheEntry, error) {
	var (
		entry     models.CacheEntry
		interests pq.StringArray
		budget    sql.NullString
		storedAt  time.Time
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT location, category, days, interests, budget, itinerary, stored_at
FROM itinerary_cache
WHERE cache_key = $1`, key).Scan(&entry.Location, &entry.Category, &entry.Days, &interests, &budget, &entry.Itinerary, &storedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(interests) > 0 {
		entry.Interests = []string(interests)
	}
	entry.Budget = budget.String
	entry.StoredAt = storedAt
	return &entry, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, entry models.CacheEntry) error {
	budget := sql.NullString{String: entry.Budget, Valid: entry.Budget != ""}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO itinerary_cache (cache_key, location, category, days, interests, budget, itinerary, stored_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (cache_key) DO UPDATE SET
  location = EXCLUDED.location,
  category = EXCLUDED.category,
  days = EXCLUDED.days,
  interests = EXCLUDED.interests,
  budget = EXCLUDED.budget,
  itinerary = EXCLUDED.itinerary,
  stored_at = EXCLUDED.stored_at;
`, key, entry.Location, entry.Category, entry.Days, pq.Array(entry.Interests), budget, entry.Itinerary, entry.StoredAt)
	return err
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error { return s.DB.Close() }
