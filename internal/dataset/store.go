package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/riskterm/internal/domain"
)

// Store reads the dataset tables from a directory through a Cache
type Store struct {
	dir   string
	cache *Cache
	log   zerolog.Logger
}

// NewStore creates a store rooted at dir
func NewStore(dir string, cache *Cache, log zerolog.Logger) *Store {
	return &Store{
		dir:   dir,
		cache: cache,
		log:   log.With().Str("component", "dataset_store").Logger(),
	}
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// Cache returns the store's cache
func (s *Store) Cache() *Cache {
	return s.cache
}

// Path returns the file path of a table
func (s *Store) Path(t Table) string {
	return filepath.Join(s.dir, t.FileName())
}

func parseFile[T any](parse func(io.Reader) (T, error)) func(string) (T, error) {
	return func(path string) (T, error) {
		f, err := os.Open(path)
		if err != nil {
			var zero T
			return zero, err
		}
		defer f.Close()
		return parse(f)
	}
}

// StockRisk returns the per-stock risk summary
func (s *Store) StockRisk() ([]domain.StockRisk, error) {
	return load(s.cache, TableStockRisk, s.Path(TableStockRisk), parseFile(ParseStockRisk))
}

// Holdings returns the portfolio weights table
func (s *Store) Holdings() ([]domain.Holding, error) {
	return load(s.cache, TableHoldings, s.Path(TableHoldings), parseFile(ParseHoldings))
}

// Correlation returns the stock return correlation matrix
func (s *Store) Correlation() (*domain.CorrelationMatrix, error) {
	return load(s.cache, TableCorrelation, s.Path(TableCorrelation), parseFile(ParseCorrelationMatrix))
}

// Volatility returns the portfolio volatility time series
func (s *Store) Volatility() ([]domain.VolatilityObservation, error) {
	return load(s.cache, TableVolatility, s.Path(TableVolatility), parseFile(ParseVolatilitySeries))
}

// Forecasts returns the ML forecast table
func (s *Store) Forecasts() ([]domain.Forecast, error) {
	return load(s.cache, TableForecasts, s.Path(TableForecasts), parseFile(ParseForecasts))
}

// Load parses one table through the cache and returns its row count.
// The correlation matrix counts one row per ticker.
func (s *Store) Load(t Table) (int, error) {
	switch t {
	case TableStockRisk:
		rows, err := s.StockRisk()
		return len(rows), err
	case TableHoldings:
		rows, err := s.Holdings()
		return len(rows), err
	case TableCorrelation:
		m, err := s.Correlation()
		if err != nil {
			return 0, err
		}
		return len(m.Tickers), nil
	case TableVolatility:
		rows, err := s.Volatility()
		return len(rows), err
	case TableForecasts:
		rows, err := s.Forecasts()
		return len(rows), err
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, t)
	}
}

// Snapshot is every table as loaded at one point in time.
// Slices are shared with the cache and must not be modified.
type Snapshot struct {
	StockRisk   []domain.StockRisk
	Holdings    []domain.Holding
	Correlation *domain.CorrelationMatrix
	Volatility  []domain.VolatilityObservation
	Forecasts   []domain.Forecast
	LoadedAt    time.Time
}

// Snapshot loads all five tables concurrently
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	g, ctx := errgroup.WithContext(ctx)

	run := func(fn func() error) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn()
		})
	}

	run(func() (err error) { snap.StockRisk, err = s.StockRisk(); return })
	run(func() (err error) { snap.Holdings, err = s.Holdings(); return })
	run(func() (err error) { snap.Correlation, err = s.Correlation(); return })
	run(func() (err error) { snap.Volatility, err = s.Volatility(); return })
	run(func() (err error) { snap.Forecasts, err = s.Forecasts(); return })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.LoadedAt = time.Now()
	return snap, nil
}

// FileStatus describes a dataset file on disk
type FileStatus struct {
	Table   Table     `json:"table"`
	File    string    `json:"file"`
	Exists  bool      `json:"exists"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

// Fingerprints stats every table file. Missing files are reported, not errors.
func (s *Store) Fingerprints() ([]FileStatus, error) {
	out := make([]FileStatus, 0, len(Tables))
	for _, t := range Tables {
		st := FileStatus{Table: t, File: t.FileName()}
		fp, err := StatFile(s.Path(t))
		switch {
		case err == nil:
			st.Exists = true
			st.Size = fp.Size
			st.ModTime = fp.ModTime
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to stat %s: %w", t.FileName(), err)
		}
		out = append(out, st)
	}
	return out, nil
}
