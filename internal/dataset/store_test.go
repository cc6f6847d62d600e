package dataset

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/aristath/riskterm/internal/testing"
)

func newTestStore(t *testing.T, dir string, opts ...CacheOption) *Store {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewStore(dir, NewCache(log, opts...), log)
}

// touch moves a file's mtime forward without changing its content
func touch(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	later := info.ModTime().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))
}

func TestStore_Snapshot(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	store := newTestStore(t, dir)

	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Len(t, snap.StockRisk, 5)
	assert.Len(t, snap.Holdings, 3)
	assert.Equal(t, 5, snap.Correlation.Size())
	assert.Len(t, snap.Volatility, 6)
	assert.Len(t, snap.Forecasts, 3)
	assert.False(t, snap.LoadedAt.IsZero())
}

func TestStore_SnapshotMissingFile(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	require.NoError(t, os.Remove(filepath.Join(dir, TableForecasts.FileName())))
	store := newTestStore(t, dir)

	_, err := store.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layer2_ml_results.csv")

	// Other tables still load on their own
	holdings, err := store.Holdings()
	require.NoError(t, err)
	assert.Len(t, holdings, 3)
}

func TestStore_SnapshotCancelled(t *testing.T) {
	store := newTestStore(t, testingpkg.WriteDataset(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Load(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	store := newTestStore(t, dir)

	want := map[Table]int{
		TableStockRisk:   5,
		TableHoldings:    3,
		TableCorrelation: 5,
		TableVolatility:  6,
		TableForecasts:   3,
	}
	for _, tbl := range Tables {
		n, err := store.Load(tbl)
		require.NoError(t, err, tbl)
		assert.Equal(t, want[tbl], n, tbl)
	}

	_, err := store.Load(Table("nope"))
	assert.ErrorIs(t, err, ErrUnknownTable)

	require.NoError(t, os.WriteFile(filepath.Join(dir, TableVolatility.FileName()),
		[]byte("Date,Portfolio_All_20d_Volatility\n2024-01-02,NaN\n"), 0o644))
	_, err = store.Load(TableVolatility)
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestCache_ParsesUnchangedFileOnce(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	rec := testingpkg.NewMockRecorder()
	store := newTestStore(t, dir, WithRecorder(rec))

	for i := 0; i < 3; i++ {
		_, err := store.StockRisk()
		require.NoError(t, err)
	}

	assert.Equal(t, 1, rec.Loads(string(TableStockRisk)))
	assert.Equal(t, 1, rec.Misses(string(TableStockRisk)))
	assert.Equal(t, 2, rec.Hits(string(TableStockRisk), "memory"))

	stats := store.Cache().Stats()
	assert.Equal(t, int64(1), stats.Parses)
	assert.Equal(t, int64(2), stats.MemoryHits)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_ModTimeChangeForcesReparse(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	store := newTestStore(t, dir)

	_, err := store.Holdings()
	require.NoError(t, err)

	touch(t, store.Path(TableHoldings))

	_, err = store.Holdings()
	require.NoError(t, err)
	assert.Equal(t, int64(2), store.Cache().Stats().Parses)
}

func TestCache_ContentChangeIsVisible(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	store := newTestStore(t, dir)

	rows, err := store.StockRisk()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	path := testingpkg.WriteFile(t, dir, TableStockRisk.FileName(),
		"Stock,Avg_Daily_Return,Avg_20D_Volatility\nAAPL,0.001,0.015\n")
	touch(t, path)

	rows, err = store.StockRisk()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCache_ConcurrentLoadsParseOnce(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	rec := testingpkg.NewMockRecorder()
	store := newTestStore(t, dir, WithRecorder(rec))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Correlation()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Loads racing before the first store may share one parse via the
	// singleflight group or land afterwards as memory hits.
	assert.Equal(t, 1, rec.Loads(string(TableCorrelation)))
}

func TestCache_ParseErrorIsNotCached(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	path := testingpkg.WriteFile(t, dir, TableStockRisk.FileName(), "Stock\nAAPL\n")
	rec := testingpkg.NewMockRecorder()
	store := newTestStore(t, dir, WithRecorder(rec))

	_, err := store.StockRisk()
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Equal(t, 1, rec.LoadErrors(string(TableStockRisk)))

	testingpkg.WriteFile(t, dir, TableStockRisk.FileName(), testingpkg.StockRiskCSV)
	touch(t, path)

	rows, err := store.StockRisk()
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestCache_PersistentTierSurvivesRestart(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	db := testingpkg.NewTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	tier := NewSQLiteTier(db, log)

	first := newTestStore(t, dir, WithPersistentTier(tier))
	want, err := first.Correlation()
	require.NoError(t, err)
	_, err = first.Forecasts()
	require.NoError(t, err)

	n, err := tier.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A fresh cache simulates a process restart
	rec := testingpkg.NewMockRecorder()
	second := newTestStore(t, dir, WithPersistentTier(tier), WithRecorder(rec))

	got, err := second.Correlation()
	require.NoError(t, err)
	assert.Equal(t, want.Tickers, got.Tickers)
	assert.Equal(t, want.Values, got.Values)
	assert.Equal(t, 1, rec.Hits(string(TableCorrelation), "persistent"))
	assert.Equal(t, 0, rec.Loads(string(TableCorrelation)))

	// Decoded matrices get their lookup index rebuilt
	idx, ok := got.IndexOf("JNJ")
	require.True(t, ok)
	assert.Equal(t, 3, idx)

	forecasts, err := second.Forecasts()
	require.NoError(t, err)
	require.NotNil(t, forecasts[0].MAE)
	assert.Nil(t, forecasts[1].MAE)
}

func TestCache_PersistentTierIgnoresStaleRows(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	tier := NewSQLiteTier(testingpkg.NewTestDB(t), zerolog.Nop())

	first := newTestStore(t, dir, WithPersistentTier(tier))
	_, err := first.Volatility()
	require.NoError(t, err)

	touch(t, first.Path(TableVolatility))

	rec := testingpkg.NewMockRecorder()
	second := newTestStore(t, dir, WithPersistentTier(tier), WithRecorder(rec))
	series, err := second.Volatility()
	require.NoError(t, err)
	assert.Len(t, series, 6)
	assert.Equal(t, 1, rec.Loads(string(TableVolatility)))
	assert.Equal(t, 0, rec.Hits(string(TableVolatility), "persistent"))
}

func TestStore_Fingerprints(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	require.NoError(t, os.Remove(filepath.Join(dir, TableVolatility.FileName())))
	store := newTestStore(t, dir)

	files, err := store.Fingerprints()
	require.NoError(t, err)
	require.Len(t, files, len(Tables))

	for _, f := range files {
		if f.Table == TableVolatility {
			assert.False(t, f.Exists)
			continue
		}
		assert.True(t, f.Exists, f.File)
		assert.Greater(t, f.Size, int64(0))
	}
}

func TestFingerprint_Same(t *testing.T) {
	now := time.Now()
	a := Fingerprint{Path: "/a", ModTime: now, Size: 10}
	assert.True(t, a.Same(Fingerprint{Path: "/a", ModTime: now, Size: 10}))
	assert.False(t, a.Same(Fingerprint{Path: "/a", ModTime: now, Size: 11}))
	assert.False(t, a.Same(Fingerprint{Path: "/a", ModTime: now.Add(time.Nanosecond), Size: 10}))
}
