package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mohammad-safakhou/itinerary/models"
)

type failingStore struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingStore) Load(context.Context, string) (*models.CacheEntry, error) {
	return nil, f.loadErr
}

func (f *failingStore) Save(context.Context, string, models.CacheEntry) error {
	f.saves++
	return f.saveErr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "Kyoto_culture_4", Key("Kyoto", "culture", 4))
	assert.Equal(t, "New York_food_3", Key("New York", "food", 3))
}

func TestResultCache_FileRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	c := NewResultCache(store, zaptest.NewLogger(t))

	req := models.NewItineraryRequest("Lisbon", "food", 2, nil, "")
	_, ok := c.Lookup(ctx, req)
	assert.False(t, ok)

	c.Store(ctx, req, "Day 1: pastel de nata")
	got, ok := c.Lookup(ctx, req)
	require.True(t, ok)
	assert.Equal(t, "Day 1: pastel de nata", got)

	entry, err := store.Load(ctx, Key("Lisbon", "food", 2))
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", entry.Location)
	assert.False(t, entry.StoredAt.IsZero())
}

func TestResultCache_ExactVariantOnly(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache(NewFileStore(t.TempDir()), zaptest.NewLogger(t))

	stored := models.NewItineraryRequest("Rome", "history", 3, []string{"ruins", "museums"}, "moderate")
	c.Store(ctx, stored, "rome plan")

	cases := []struct {
		name string
		req  models.ItineraryRequest
		hit  bool
	}{
		{"same", models.NewItineraryRequest("Rome", "history", 3, []string{"ruins", "museums"}, "moderate"), true},
		{"reordered interests", models.NewItineraryRequest("Rome", "history", 3, []string{"museums", "ruins"}, "moderate"), false},
		{"different budget", models.NewItineraryRequest("Rome", "history", 3, []string{"ruins", "museums"}, "luxury"), false},
		{"no budget", models.NewItineraryRequest("Rome", "history", 3, []string{"ruins", "museums"}, ""), false},
		{"no interests", models.NewItineraryRequest("Rome", "history", 3, nil, "moderate"), false},
		{"different days", models.NewItineraryRequest("Rome", "history", 4, []string{"ruins", "museums"}, "moderate"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := c.Lookup(ctx, tc.req)
			assert.Equal(t, tc.hit, ok)
		})
	}
}

func TestResultCache_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache(NewFileStore(t.TempDir()), zaptest.NewLogger(t))

	first := models.NewItineraryRequest("Oslo", "nature", 3, []string{"fjords"}, "")
	second := models.NewItineraryRequest("Oslo", "nature", 3, []string{"hiking"}, "")
	c.Store(ctx, first, "fjord plan")
	c.Store(ctx, second, "hiking plan")

	_, ok := c.Lookup(ctx, first)
	assert.False(t, ok)
	got, ok := c.Lookup(ctx, second)
	require.True(t, ok)
	assert.Equal(t, "hiking plan", got)
}

func TestResultCache_SwallowsStoreFailures(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{loadErr: errors.New("disk on fire"), saveErr: errors.New("disk on fire")}
	c := NewResultCache(fs, zaptest.NewLogger(t))
	req := models.NewItineraryRequest("Cairo", "history", 3, nil, "")

	_, ok := c.Lookup(ctx, req)
	assert.False(t, ok)
	assert.NotPanics(t, func() { c.Store(ctx, req, "plan") })
	assert.Equal(t, 1, fs.saves)
}

func TestResultCache_CorruptFileIsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, os.WriteFile(store.Path(Key("Paris", "art", 3)), []byte("{not json"), 0o644))

	c := NewResultCache(store, zaptest.NewLogger(t))
	_, ok := c.Lookup(ctx, models.NewItineraryRequest("Paris", "art", 3, nil, ""))
	assert.False(t, ok)
}

func TestFileStore_SanitizesKey(t *testing.T) {
	store := NewFileStore("/tmp/cache")
	p := store.Path(Key("a/b", "c:d", 1))
	assert.Equal(t, "/tmp/cache", filepath.Dir(p))
	assert.Equal(t, "a_b_c_d_1.json", filepath.Base(p))
}

func TestFileStore_CreatesDirOnSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	store := NewFileStore(dir)
	err := store.Save(context.Background(), "k", models.CacheEntry{Location: "x", Itinerary: "y", StoredAt: time.Now()})
	require.NoError(t, err)
	_, err = os.Stat(store.Path("k"))
	assert.NoError(t, err)
}

func TestFileStore_OverwriteLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, store.Save(ctx, "k", models.CacheEntry{Itinerary: "first"}))
	require.NoError(t, store.Save(ctx, "k", models.CacheEntry{Itinerary: "second"}))

	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Itinerary)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(store.Path("k")), entries[0].Name())
}

func TestNopStore(t *testing.T) {
	var s NopStore
	_, err := s.Load(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Save(context.Background(), "k", models.CacheEntry{}))
}
