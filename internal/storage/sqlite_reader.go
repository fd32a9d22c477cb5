package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mwatelescope/mwax-plot/internal/mwax"
)

// ErrNoData indicates either that no records exist for the given parameters,
// or that all available series have been read from the reader.
var ErrNoData = fmt.Errorf("no data available")

// SeriesData is a constraint over the per channel record types the archive
// holds for plottable products.
type SeriesData interface {
	mwax.PhasePair | mwax.PowerPair
}

// Series is one plottable row of an import: the channels of a single
// baseline or antenna that pass the reader's filters, in channel order.
type Series[T SeriesData] struct {
	Index int       // baseline or antenna index
	Freqs []float64 // channel centre frequencies in MHz
	Data  []T       // parallel to Freqs
}

// SeriesReader provides an iterator-based interface for reading the series
// of one import with optional index and frequency filtering.
type SeriesReader[T SeriesData] interface {
	// Import returns the catalog entry this reader is accessing.
	Import() *Import

	// Next advances the iterator and returns true if there is another
	// series to read, false when the iteration is complete or if an error
	// occurred.
	Next(context.Context) bool

	// Current returns the current series in the iteration. If called after
	// Next() returns false, the behavior is undefined.
	Current() *Series[T]

	// Error returns any error that occurred during iteration. If Next()
	// returns false, Error() should be checked to distinguish between end
	// of data and an error condition.
	Error() error

	// Close releases any resources associated with the reader. After Close
	// is called, the reader should not be used.
	Close() error
}

// ReaderOption configures a series reader with specific filtering criteria.
// The type parameter T must match the reader being configured.
type ReaderOption[T SeriesData] func(*SqliteSeriesReader[T])

// WithIndex restricts the reader to a single baseline or antenna.
func WithIndex[T SeriesData](index int) ReaderOption[T] {
	return func(r *SqliteSeriesReader[T]) {
		r.minIndex = &index
		r.maxIndex = &index
	}
}

// WithIndexRange restricts the reader to baselines or antennas from lo to
// hi inclusive.
func WithIndexRange[T SeriesData](lo, hi int) ReaderOption[T] {
	return func(r *SqliteSeriesReader[T]) {
		r.minIndex = &lo
		r.maxIndex = &hi
	}
}

// WithMinFreq sets the minimum frequency filter in MHz. Channels below this
// frequency will be excluded.
func WithMinFreq[T SeriesData](f float64) ReaderOption[T] {
	return func(r *SqliteSeriesReader[T]) {
		r.minFreq = &f
	}
}

// WithMaxFreq sets the maximum frequency filter in MHz. Channels above this
// frequency will be excluded.
func WithMaxFreq[T SeriesData](f float64) ReaderOption[T] {
	return func(r *SqliteSeriesReader[T]) {
		r.maxFreq = &f
	}
}

// WithFreqRange sets both frequency filters. This is a convenience function
// equivalent to applying both WithMinFreq and WithMaxFreq.
func WithFreqRange[T SeriesData](minFreq, maxFreq float64) ReaderOption[T] {
	return func(r *SqliteSeriesReader[T]) {
		r.minFreq = &minFreq
		r.maxFreq = &maxFreq
	}
}

// seriesQueries binds a reader instantiation to the record table of one
// product kind.
type seriesQueries struct {
	product          mwax.Product
	selectSeries     string
	selectFreqBounds string
}

var (
	fringeSeriesQueries = seriesQueries{mwax.ProductFringes, selectFringeSeriesSQL, selectFringeFreqBoundsSQL}
	autoSeriesQueries   = seriesQueries{mwax.ProductAutos, selectAutoSeriesSQL, selectAutoFreqBoundsSQL}
)

func newSqliteSeriesReader[T SeriesData](ctx context.Context, db *sql.DB, importID int64, q seriesQueries, opts ...ReaderOption[T],
) (*SqliteSeriesReader[T], error) {
	sr := &SqliteSeriesReader[T]{
		db:       db,
		importID: importID,
		q:        q,
	}
	for _, opt := range opts {
		opt(sr)
	}
	if err := sr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return sr, nil
}

// SqliteSeriesReader implements SeriesReader for the SQLite archive backend.
type SqliteSeriesReader[T SeriesData] struct {
	db *sql.DB

	importID int64
	imp      *Import
	q        seriesQueries

	minIndex *int     // Optional start of series index filter
	maxIndex *int     // Optional end of series index filter
	minFreq  *float64 // Optional minimum frequency filter
	maxFreq  *float64 // Optional maximum frequency filter

	current    *Series[T]
	nextIndex  int // First record of the next series
	nextFreq   float64
	nextValue  T
	nextExists bool
	rows       *sql.Rows
	err        error
}

func (sr *SqliteSeriesReader[T]) init(ctx context.Context) error {
	if sr.db == nil {
		return errors.New("database connection required")
	}
	if sr.importID <= 0 {
		return errors.New("import ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading import", fn: sr.loadImport},
		{msg: "initializing filters", fn: sr.initFilters},
		{msg: "initializing query", fn: sr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (sr *SqliteSeriesReader[T]) loadImport(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, selectImportSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	imp, err := scanImport(stmt.QueryRowContext(ctx, sr.importID))
	if err != nil {
		return fmt.Errorf("querying import: %w", err)
	}
	if imp.Product != sr.q.product {
		return fmt.Errorf("import %d holds a %s product, not %s", sr.importID, imp.Product, sr.q.product)
	}

	sr.imp = imp
	return
}

func (sr *SqliteSeriesReader[T]) initFilters(ctx context.Context) (err error) {
	count := sr.imp.SeriesCount()
	if sr.minIndex == nil {
		first := 0
		sr.minIndex = &first
	}
	if sr.maxIndex == nil {
		last := count - 1
		sr.maxIndex = &last
	}
	if *sr.minIndex > *sr.maxIndex {
		return fmt.Errorf("series range start %d is after end %d", *sr.minIndex, *sr.maxIndex)
	}
	if *sr.minIndex < 0 || *sr.maxIndex >= count {
		return fmt.Errorf("series range [%d, %d] outside [0, %d)", *sr.minIndex, *sr.maxIndex, count)
	}

	if sr.minFreq != nil && sr.maxFreq != nil {
		if *sr.minFreq > *sr.maxFreq {
			return fmt.Errorf("min frequency %f is greater than max frequency %f", *sr.minFreq, *sr.maxFreq)
		}
		return nil
	}

	stmt, err := sr.db.PrepareContext(ctx, sr.q.selectFreqBounds)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var minFreq, maxFreq sql.NullFloat64
	if err = stmt.QueryRowContext(ctx, sr.importID).Scan(&minFreq, &maxFreq); err != nil {
		return fmt.Errorf("scanning frequency bounds: %w", err)
	}

	if sr.minFreq == nil {
		sr.minFreq = &minFreq.Float64
	}
	if sr.maxFreq == nil {
		sr.maxFreq = &maxFreq.Float64
	}
	return nil
}

func (sr *SqliteSeriesReader[T]) initQuery(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, sr.q.selectSeries)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if sr.rows, err = stmt.QueryContext(ctx, sr.importID, sr.minIndex, sr.maxIndex, sr.minFreq, sr.maxFreq); err != nil {
		return err
	}
	return nil
}

// scanRecord reads one record row and packs the two per polarisation values
// into the reader's series type.
func (sr *SqliteSeriesReader[T]) scanRecord() (index int, freq float64, value T, err error) {
	var channel int
	var a, b float64
	if err = sr.rows.Scan(&index, &channel, &freq, &a, &b); err != nil {
		err = fmt.Errorf("scanning record: %w", err)
		return
	}

	switch p := any(&value).(type) {
	case *mwax.PhasePair:
		p.X, p.Y = a, b
	case *mwax.PowerPair:
		p.XX, p.YY = a, b
	}
	return
}

func (sr *SqliteSeriesReader[T]) newSeries(index int) *Series[T] {
	return &Series[T]{
		Index: index,
		Freqs: make([]float64, 0, sr.imp.FineChans),
		Data:  make([]T, 0, sr.imp.FineChans),
	}
}

func (sr *SqliteSeriesReader[T]) Import() *Import {
	return sr.imp
}

func (sr *SqliteSeriesReader[T]) Next(ctx context.Context) bool {
	if sr.err != nil || sr.rows == nil {
		return false
	}

	if sr.nextExists {
		sr.current = sr.newSeries(sr.nextIndex)
		sr.current.Freqs = append(sr.current.Freqs, sr.nextFreq)
		sr.current.Data = append(sr.current.Data, sr.nextValue)
		sr.nextExists = false
	}

	for {
		select {
		case <-ctx.Done():
			sr.err = ctx.Err()
			return false
		default:
		}

		if !sr.rows.Next() {
			if sr.current != nil && len(sr.current.Data) > 0 {
				sr.err = ErrNoData
				return true
			}
			return false
		}

		index, freq, value, err := sr.scanRecord()
		if err != nil {
			sr.err = err
			return false
		}

		if sr.current == nil {
			sr.current = sr.newSeries(index)
		}

		// Index change completes the current series; stash the record that
		// starts the next one.
		if index != sr.current.Index {
			sr.nextIndex = index
			sr.nextFreq = freq
			sr.nextValue = value
			sr.nextExists = true
			return true
		}

		sr.current.Freqs = append(sr.current.Freqs, freq)
		sr.current.Data = append(sr.current.Data, value)
	}
}

func (sr *SqliteSeriesReader[T]) Current() *Series[T] {
	return sr.current
}

func (sr *SqliteSeriesReader[T]) Error() error {
	if sr.err != nil && !errors.Is(sr.err, ErrNoData) {
		return sr.err
	}
	if sr.rows != nil {
		return sr.rows.Err()
	}
	return nil
}

func (sr *SqliteSeriesReader[T]) Close() error {
	if sr.rows != nil {
		err := sr.rows.Close()
		sr.current = nil
		sr.nextExists = false
		sr.rows = nil
		return err
	}
	return nil
}
