// Package datasync refreshes the dataset directory and announces changed files.
package datasync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/riskterm/internal/clients/objectstore"
	"github.com/aristath/riskterm/internal/dataset"
	"github.com/aristath/riskterm/internal/events"
)

// ErrSyncInProgress is returned when a sync is requested while one is running
var ErrSyncInProgress = errors.New("dataset sync already in progress")

const moduleName = "datasync"

const (
	SourceObjectStore = "s3"
	SourceLocal       = "local"
)

// Downloader mirrors remote dataset files into a directory
type Downloader interface {
	Sync(ctx context.Context, dir string, files []string) (*objectstore.Report, error)
}

// Recorder receives sync outcomes
type Recorder interface {
	ObserveSync(downloaded, changed int, err error)
}

// Result describes one sync run
type Result struct {
	Source     string               `json:"source"`
	Downloaded []string             `json:"downloaded"`
	Missing    []string             `json:"missing,omitempty"`
	Changes    []events.FileChange  `json:"changes"`
	Invalid    []string             `json:"invalid,omitempty"`
	Files      []dataset.FileStatus `json:"files"`
	StartedAt  time.Time            `json:"started_at"`
	Duration   time.Duration        `json:"duration_ns"`
}

// Service compares dataset fingerprints between runs. The first run records
// a baseline and reports no changes.
type Service struct {
	store      *dataset.Store
	downloader Downloader
	bus        *events.Bus
	recorder   Recorder
	log        zerolog.Logger

	running sync.Mutex

	mu       sync.Mutex
	baseline map[dataset.Table]dataset.FileStatus
	last     *Result
}

// NewService creates a sync service. downloader and recorder may be nil;
// without a downloader only local files are re-stated.
func NewService(store *dataset.Store, downloader Downloader, bus *events.Bus, recorder Recorder, log zerolog.Logger) *Service {
	return &Service{
		store:      store,
		downloader: downloader,
		bus:        bus,
		recorder:   recorder,
		log:        log.With().Str("service", "datasync").Logger(),
	}
}

func (s *Service) source() string {
	if s.downloader != nil {
		return SourceObjectStore
	}
	return SourceLocal
}

// Run performs one sync. Concurrent calls fail fast with ErrSyncInProgress.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if !s.running.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.running.Unlock()

	res := &Result{
		Source:     s.source(),
		StartedAt:  time.Now(),
		Downloaded: []string{},
		Changes:    []events.FileChange{},
	}
	s.emit(&events.SyncStartedData{Source: res.Source})

	err := s.run(ctx, res)
	res.Duration = time.Since(res.StartedAt)

	if s.recorder != nil {
		s.recorder.ObserveSync(len(res.Downloaded), len(res.Changes), err)
	}
	if err != nil {
		s.log.Error().Err(err).Str("source", res.Source).Msg("Dataset sync failed")
		s.emit(&events.SyncFailedData{Source: res.Source, Error: err.Error()})
		return nil, err
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	s.emit(&events.SyncCompletedData{
		Source:     res.Source,
		Downloaded: len(res.Downloaded),
		Changed:    len(res.Changes),
		DurationMs: res.Duration.Milliseconds(),
	})
	s.log.Info().
		Str("source", res.Source).
		Int("downloaded", len(res.Downloaded)).
		Int("changed", len(res.Changes)).
		Dur("duration", res.Duration).
		Msg("Dataset sync completed")
	return res, nil
}

func (s *Service) run(ctx context.Context, res *Result) error {
	if s.downloader != nil {
		files := make([]string, len(dataset.Tables))
		for i, t := range dataset.Tables {
			files[i] = t.FileName()
		}
		report, err := s.downloader.Sync(ctx, s.store.Dir(), files)
		if err != nil {
			return fmt.Errorf("failed to download datasets: %w", err)
		}
		res.Downloaded = append(res.Downloaded, report.Downloaded...)
		res.Missing = report.Missing
	}

	statuses, err := s.store.Fingerprints()
	if err != nil {
		return err
	}
	res.Files = statuses

	s.mu.Lock()
	first := s.baseline == nil
	if !first {
		res.Changes = append(res.Changes, diff(s.baseline, statuses)...)
	}
	s.baseline = make(map[dataset.Table]dataset.FileStatus, len(statuses))
	for _, st := range statuses {
		s.baseline[st.Table] = st
	}
	s.mu.Unlock()

	if len(res.Changes) > 0 {
		s.store.Cache().Invalidate()
		updated := &events.DatasetUpdatedData{Changes: res.Changes}
		s.emit(updated)
		s.log.Info().Strs("tables", updated.Tables()).Msg("Dataset files changed")
		res.Invalid = s.reload(res.Changes)
	}
	return nil
}

// reload re-parses changed tables so readers hit a warm cache. A table that
// fails to parse is reported but does not fail the sync; the previous file
// is already gone.
func (s *Service) reload(changes []events.FileChange) []string {
	var invalid []string
	for _, c := range changes {
		if c.Removed {
			continue
		}
		table, err := dataset.ParseTable(c.Table)
		if err == nil {
			_, err = s.store.Load(table)
		}
		if err != nil {
			invalid = append(invalid, c.Table)
			s.log.Warn().Err(err).Str("table", c.Table).Msg("Changed dataset file failed to load")
			if s.bus != nil {
				s.bus.EmitError(moduleName, err, map[string]interface{}{
					"table": c.Table,
					"file":  c.File,
				})
			}
		}
	}
	return invalid
}

// diff lists tables whose existence, size or modification time moved
func diff(before map[dataset.Table]dataset.FileStatus, after []dataset.FileStatus) []events.FileChange {
	var out []events.FileChange
	for _, cur := range after {
		prev, ok := before[cur.Table]
		if ok && prev.Exists == cur.Exists && prev.Size == cur.Size && prev.ModTime.Equal(cur.ModTime) {
			continue
		}
		if !ok && !cur.Exists {
			continue
		}
		out = append(out, events.FileChange{
			Table:   string(cur.Table),
			File:    cur.File,
			Size:    cur.Size,
			ModTime: cur.ModTime,
			Removed: !cur.Exists,
		})
	}
	return out
}

func (s *Service) emit(data events.EventData) {
	if s.bus != nil {
		s.bus.Emit(moduleName, data)
	}
}

// LastResult returns the most recent successful run, or nil
func (s *Service) LastResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
