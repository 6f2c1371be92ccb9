package archive

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/store"
	"github.com/de-tools/royalty-ledger/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	index Index
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	index, err := NewIndex(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{db: db, index: index}
}

func TestNewIndex(t *testing.T) {
	t.Run("nil db", func(t *testing.T) {
		index, err := NewIndex(nil)
		assert.Error(t, err)
		assert.Nil(t, index)
	})
}

func TestIndex_PutGet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	fetched := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)

	t.Run("missing period", func(t *testing.T) {
		rec, err := f.index.Get(ctx, "2024-03")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("put then get", func(t *testing.T) {
		err := f.index.Put(ctx, store.ArchiveRecord{
			Period: "2024-03", Location: "/a/royalties_202403.csv", Checksum: "c1", Rows: 3, Source: "portal", FetchedAt: fetched,
		})
		require.NoError(t, err)

		rec, err := f.index.Get(ctx, "2024-03")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "c1", rec.Checksum)
		assert.Equal(t, 3, rec.Rows)
		assert.Equal(t, fetched.Unix(), rec.FetchedAt.Unix())
	})

	t.Run("put overwrites", func(t *testing.T) {
		err := f.index.Put(ctx, store.ArchiveRecord{
			Period: "2024-03", Location: "/a/royalties_202403.csv", Checksum: "c2", Rows: 4, Source: "filedrop", FetchedAt: fetched,
		})
		require.NoError(t, err)

		records, err := f.index.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "c2", records[0].Checksum)
		assert.Equal(t, "filedrop", records[0].Source)
	})
}

func TestIndex_ListOrdersByPeriod(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	for _, p := range []string{"2024-02", "2023-12", "2024-01"} {
		require.NoError(t, f.index.Put(ctx, store.ArchiveRecord{Period: p, Location: p, Checksum: p, Source: "portal", FetchedAt: time.Now()}))
	}

	records, err := f.index.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2023-12", records[0].Period)
	assert.Equal(t, "2024-02", records[2].Period)
}

func TestIndex_PutJoinsTransactionFromContext(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	// Given a put issued inside a transaction carried by the context
	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	txCtx := duckdb.WithTransaction(ctx, tx)

	err = f.index.Put(txCtx, store.ArchiveRecord{
		Period: "2024-05", Location: "/a/royalties_202405.csv", Checksum: "c5", Rows: 1, Source: "portal",
		FetchedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// When the transaction is rolled back
	require.NoError(t, tx.Rollback())

	// Then the record was never written
	rec, err := f.index.Get(ctx, "2024-05")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
