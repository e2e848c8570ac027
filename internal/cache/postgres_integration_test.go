package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/mohammad-safakhou/itinerary/models"
)

func startPostgres(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "itinerary",
			"POSTGRES_PASSWORD": "itinerary",
			"POSTGRES_DB":       "itinerary",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start postgres: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		_ = pg.Terminate(ctx)
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host, err := pg.Host(ctx)
	if err != nil {
		_ = pg.Terminate(ctx)
		t.Fatalf("failed to get host: %v", err)
	}
	return pg, fmt.Sprintf("postgres://itinerary:itinerary@%s:%s/itinerary?sslmode=disable", host, port.Port())
}

func findMigrationsDir(t *testing.T) string {
	t.Helper()
	cwd, _ := os.Getwd()
	for i := 0; i < 6; i++ {
		candidate := filepath.Join(cwd, "migrations")
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return "file://" + candidate
		}
		cwd = filepath.Dir(cwd)
	}
	t.Fatalf("could not locate migrations directory from test cwd")
	return ""
}

func TestPostgresStore_Integration(t *testing.T) {
	if os.Getenv("ITINERARY_INTEGRATION") != "1" {
		t.Skip("set ITINERARY_INTEGRATION=1 to run against a postgres container")
	}
	ctx := context.Background()
	pg, dsn := startPostgres(t, ctx)
	defer pg.Terminate(ctx)

	var migErr error
	for i := 0; i < 6; i++ {
		if migErr = Migrate(findMigrationsDir(t), dsn, "up", 0); migErr == nil {
			break
		}
		time.Sleep(300 * time.Millisecond)
	}
	require.NoError(t, migErr)

	st, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer st.Close()

	c := NewResultCache(st, zaptest.NewLogger(t))
	req := models.NewItineraryRequest("Kyoto", "culture", 4, []string{"temples", "tea"}, "moderate")
	c.Store(ctx, req, "first")
	c.Store(ctx, req, "second")

	got, ok := c.Lookup(ctx, req)
	require.True(t, ok)
	assert.Equal(t, "second", got)

	_, ok = c.Lookup(ctx, models.NewItineraryRequest("Kyoto", "culture", 4, []string{"tea", "temples"}, "moderate"))
	assert.False(t, ok)

	require.NoError(t, Migrate(findMigrationsDir(t), dsn, "down", 0))
}
