package datasync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riskterm/internal/clients/objectstore"
	"github.com/aristath/riskterm/internal/dataset"
	"github.com/aristath/riskterm/internal/events"
	testingpkg "github.com/aristath/riskterm/internal/testing"
)

type eventLog struct {
	mu     sync.Mutex
	events []*events.Event
}

func (l *eventLog) record(e *events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func (l *eventLog) last(t events.EventType) *events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Type == t {
			return l.events[i]
		}
	}
	return nil
}

type syncObservation struct {
	downloaded, changed int
	err                 error
}

type stubRecorder struct {
	mu  sync.Mutex
	obs []syncObservation
}

func (r *stubRecorder) ObserveSync(downloaded, changed int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, syncObservation{downloaded, changed, err})
}

// fileDownloader writes fixed content for one file on every sync
type fileDownloader struct {
	file    string
	content string
	err     error
	entered chan struct{}
	block   chan struct{}
}

func (d *fileDownloader) Sync(ctx context.Context, dir string, files []string) (*objectstore.Report, error) {
	if d.entered != nil {
		close(d.entered)
	}
	if d.block != nil {
		<-d.block
	}
	if d.err != nil {
		return nil, d.err
	}
	if err := os.WriteFile(filepath.Join(dir, d.file), []byte(d.content), 0644); err != nil {
		return nil, err
	}
	return &objectstore.Report{Downloaded: []string{d.file}}, nil
}

func setup(t *testing.T, downloader Downloader) (*Service, *dataset.Store, *eventLog, *stubRecorder) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := dataset.NewStore(testingpkg.WriteDataset(t), dataset.NewCache(log), log)
	bus := events.NewBus(log)

	el := &eventLog{}
	bus.SubscribeAll(el.record, events.AllTypes...)

	rec := &stubRecorder{}
	return NewService(store, downloader, bus, rec, log), store, el, rec
}

func TestService_LocalBaselineThenChange(t *testing.T) {
	svc, store, el, rec := setup(t, nil)
	ctx := context.Background()

	res, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Empty(t, res.Changes)
	assert.Len(t, res.Files, len(dataset.Tables))
	assert.Equal(t, []events.EventType{events.SyncStarted, events.SyncCompleted}, el.types())

	// Warm the cache, then touch one file
	_, err = store.Volatility()
	require.NoError(t, err)
	require.Equal(t, 1, store.Cache().Stats().Entries)

	path := store.Path(dataset.TableVolatility)
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	res, err = svc.Run(ctx)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, string(dataset.TableVolatility), res.Changes[0].Table)
	assert.False(t, res.Changes[0].Removed)
	assert.Empty(t, res.Invalid)

	// The changed table is parsed again and left warm
	stats := store.Cache().Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(2), stats.Parses)

	updated := el.last(events.DatasetUpdated)
	require.NotNil(t, updated)
	data := updated.Data.(*events.DatasetUpdatedData)
	assert.Equal(t, []string{"volatility"}, data.Tables())

	require.Len(t, rec.obs, 2)
	assert.Equal(t, 1, rec.obs[1].changed)
	assert.Same(t, res, svc.LastResult())
}

func TestService_RemovedFile(t *testing.T) {
	svc, store, _, _ := setup(t, nil)
	ctx := context.Background()

	_, err := svc.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(store.Path(dataset.TableForecasts)))

	res, err := svc.Run(ctx)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.True(t, res.Changes[0].Removed)
}

func TestService_DownloaderChangesFile(t *testing.T) {
	d := &fileDownloader{
		file:    dataset.TableHoldings.FileName(),
		content: "Stock,Portfolio_Weight_Percent,Avg_Daily_Return,Avg_20D_Volatility,Risk_Adjusted_Score\nAAPL,100,0.001,0.015,0.0667\n",
	}
	svc, store, el, rec := setup(t, d)
	ctx := context.Background()

	// Baseline run already downloads, but reports no changes
	res, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceObjectStore, res.Source)
	assert.Equal(t, []string{d.file}, res.Downloaded)
	assert.Empty(t, res.Changes)

	d.content += "JNJ,0,0.0003,0.008,0.0375\n"
	res, err = svc.Run(ctx)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "holdings", res.Changes[0].Table)

	holdings, err := store.Holdings()
	require.NoError(t, err)
	assert.Len(t, holdings, 2)

	assert.NotNil(t, el.last(events.DatasetUpdated))
	assert.Equal(t, 1, rec.obs[1].downloaded)
}

func TestService_InvalidChangedFile(t *testing.T) {
	d := &fileDownloader{file: dataset.TableVolatility.FileName(), content: testingpkg.VolatilityCSV}
	svc, _, el, _ := setup(t, d)
	ctx := context.Background()

	_, err := svc.Run(ctx)
	require.NoError(t, err)

	d.content = "Date,Portfolio_All_20d_Volatility\n2024-01-02,0.01\n2024-01-03,NaN\n"
	res, err := svc.Run(ctx)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, []string{"volatility"}, res.Invalid)

	failed := el.last(events.ErrorOccurred)
	require.NotNil(t, failed)
	assert.Equal(t, "datasync", failed.Module)
	data := failed.Data.(*events.ErrorEventData)
	assert.Contains(t, data.Error, "line 3")
	assert.Equal(t, "volatility", data.Context["table"])
	assert.Equal(t, "portfolio_volatility_all_stocks.csv", data.Context["file"])

	assert.NotNil(t, el.last(events.SyncCompleted))
}

func TestService_DownloadFailure(t *testing.T) {
	boom := errors.New("bucket unreachable")
	svc, _, el, rec := setup(t, &fileDownloader{err: boom})

	_, err := svc.Run(context.Background())
	require.ErrorIs(t, err, boom)

	failed := el.last(events.SyncFailed)
	require.NotNil(t, failed)
	assert.Contains(t, failed.Data.(*events.SyncFailedData).Error, "bucket unreachable")
	assert.Nil(t, el.last(events.SyncCompleted))
	require.Len(t, rec.obs, 1)
	assert.ErrorIs(t, rec.obs[0].err, boom)
	assert.Nil(t, svc.LastResult())
}

func TestService_RejectsConcurrentRun(t *testing.T) {
	entered := make(chan struct{})
	block := make(chan struct{})
	d := &fileDownloader{file: "extra.csv", content: "x", entered: entered, block: block}
	svc, _, _, _ := setup(t, d)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()

	<-entered
	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(block)
	require.NoError(t, <-done)
}
