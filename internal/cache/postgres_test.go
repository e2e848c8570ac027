package cache

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mohammad-safakhou/itinerary/models"
)

const selectEntrySQL = `
SELECT location, category, days, interests, budget, itinerary, stored_at
FROM itinerary_cache
WHERE cache_key = $1`

func TestPostgresStore_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	storedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"location", "category", "days", "interests", "budget", "itinerary", "stored_at"}).
		AddRow("Kyoto", "culture", 4, "{temples,gardens}", "budget", "kyoto plan", storedAt)
	mock.ExpectQuery(regexp.QuoteMeta(selectEntrySQL)).WithArgs("Kyoto_culture_4").WillReturnRows(rows)

	st := &PostgresStore{DB: db}
	entry, err := st.Load(context.Background(), "Kyoto_culture_4")
	require.NoError(t, err)
	assert.Equal(t, []string{"temples", "gardens"}, entry.Interests)
	assert.Equal(t, "budget", entry.Budget)
	assert.Equal(t, "kyoto plan", entry.Itinerary)
	assert.Equal(t, storedAt, entry.StoredAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadMissingAndNulls(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectEntrySQL)).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"location", "category", "days", "interests", "budget", "itinerary", "stored_at"}))
	mock.ExpectQuery(regexp.QuoteMeta(selectEntrySQL)).WithArgs("Oslo_nature_3").
		WillReturnRows(sqlmock.NewRows([]string{"location", "category", "days", "interests", "budget", "itinerary", "stored_at"}).
			AddRow("Oslo", "nature", 3, nil, nil, "oslo plan", time.Now()))

	st := &PostgresStore{DB: db}
	_, err = st.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	entry, err := st.Load(context.Background(), "Oslo_nature_3")
	require.NoError(t, err)
	assert.Nil(t, entry.Interests)
	assert.Empty(t, entry.Budget)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO itinerary_cache")).
		WithArgs("Rome_history_3", "Rome", "history", 3, sqlmock.AnyArg(), sqlmock.AnyArg(), "rome plan", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := NewResultCache(&PostgresStore{DB: db}, zaptest.NewLogger(t))
	c.Store(context.Background(), models.NewItineraryRequest("Rome", "history", 3, []string{"ruins"}, ""), "rome plan")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryErrorIsMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectEntrySQL)).WithArgs("Rome_history_3").WillReturnError(errors.New("connection reset"))

	c := NewResultCache(&PostgresStore{DB: db}, zaptest.NewLogger(t))
	_, ok := c.Lookup(context.Background(), models.NewItineraryRequest("Rome", "history", 3, nil, ""))
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
