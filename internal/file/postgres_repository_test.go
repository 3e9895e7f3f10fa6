package file

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("FILEDROP_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FILEDROP_POSTGRES_DSN not set; skipping postgres repository tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	schema := fmt.Sprintf("filedrop_test_%d", time.Now().UnixNano())
	admin, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	repo := NewPostgresRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.Ping(ctx))
	return repo
}

func TestPostgresRepositoryListsNewestFirst(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()

	records := sameMillisecondRecords(3)
	for _, rec := range records {
		stored, err := repo.Create(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, stored.ID)
		assert.True(t, rec.CreatedAt.Equal(stored.CreatedAt))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{records[2].ID, records[1].ID, records[0].ID}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestPostgresRepositoryRejectsDuplicateStoredName(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()

	records := sameMillisecondRecords(2)
	records[1].StoredName = records[0].StoredName

	_, err := repo.Create(ctx, records[0])
	require.NoError(t, err)
	_, err = repo.Create(ctx, records[1])
	require.Error(t, err)
}

func TestPostgresRepositoryNotFound(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, newRecordID())
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, newRecordID()), ErrNotFound)
}
