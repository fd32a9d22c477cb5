package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mwatelescope/mwax-plot/internal/mwax"
)

// insertBatchRows is the number of records per multi-row INSERT. Six
// placeholders per row keeps a batch well under the SQLite variable limit.
const insertBatchRows = 500

// SqliteStore is the SQLite archive backend. Writes go through a lazily
// opened WAL connection, reads through a separate read-only connection.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store for the database at dbPath. Connections
// are opened on first use; the schema is initialized with the first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateImport inserts the catalog entry and returns its ID. The
// imported_at column is filled by the database.
func (s *SqliteStore) CreateImport(ctx context.Context, imp *Import) (importID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertImportSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, imp.Product, imp.SourceFile, imp.ObsID,
		imp.FineChans, imp.Tiles, imp.RecvChan, toNullString(imp.Hostname), imp.RecordCount)
	if err != nil {
		err = fmt.Errorf("inserting import: %w", err)
		return
	}

	importID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting import ID: %w", err)
	}
	return
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImport(row rowScanner) (*Import, error) {
	var imp Import
	var hostname sql.NullString
	if err := row.Scan(&imp.ID, &imp.ImportedAt, &imp.Product, &imp.SourceFile, &imp.ObsID,
		&imp.FineChans, &imp.Tiles, &imp.RecvChan, &hostname, &imp.RecordCount); err != nil {
		return nil, err
	}
	imp.Hostname = hostname.String
	return &imp, nil
}

// Import returns the catalog entry with the given ID.
func (s *SqliteStore) Import(ctx context.Context, id int64) (imp *Import, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectImportSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if imp, err = scanImport(stmt.QueryRowContext(ctx, id)); err != nil {
		err = fmt.Errorf("scanning import: %w", err)
	}
	return
}

// Imports returns all catalog entries in import order.
func (s *SqliteStore) Imports(ctx context.Context) (imports []*Import, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectImportsSQL)
	if err != nil {
		err = fmt.Errorf("querying imports: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var imp *Import
		if imp, err = scanImport(rows); err != nil {
			err = fmt.Errorf("scanning import: %w", err)
			return
		}
		imports = append(imports, imp)
	}
	err = rows.Err()
	return
}

// StoreFringes writes the full baseline by channel grid of set under
// importID in one transaction, batching the inserts.
func (s *SqliteStore) StoreFringes(ctx context.Context, importID int64, set *mwax.FringeSet) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	batch := newInsertBatch(tx, insertFringeRecordsSQL, "(?, ?, ?, ?, ?, ?)")
	for bl := 0; bl < set.Meta.Baselines(); bl++ {
		var pairs []mwax.PhasePair
		if pairs, err = set.Baseline(bl); err != nil {
			return err
		}
		for fc, pair := range pairs {
			if err = batch.add(ctx, importID, bl, fc, set.Freqs[fc], pair.X, pair.Y); err != nil {
				return fmt.Errorf("batch inserting fringe records: %w", err)
			}
		}
	}
	if err = batch.flush(ctx); err != nil {
		return fmt.Errorf("batch inserting fringe records: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// StoreAutos writes the full antenna by channel grid of set under importID
// in one transaction, batching the inserts.
func (s *SqliteStore) StoreAutos(ctx context.Context, importID int64, set *mwax.AutoSet) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	batch := newInsertBatch(tx, insertAutoRecordsSQL, "(?, ?, ?, ?, ?, ?)")
	for ant := 0; ant < set.Meta.Tiles; ant++ {
		var pairs []mwax.PowerPair
		if pairs, err = set.Antenna(ant); err != nil {
			return err
		}
		for fc, pair := range pairs {
			if err = batch.add(ctx, importID, ant, fc, set.Freqs[fc], pair.XX, pair.YY); err != nil {
				return fmt.Errorf("batch inserting auto records: %w", err)
			}
		}
	}
	if err = batch.flush(ctx); err != nil {
		return fmt.Errorf("batch inserting auto records: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// StorePacketStats writes the per input loss counters of set under importID.
func (s *SqliteStore) StorePacketStats(ctx context.Context, importID int64, set *mwax.PacketStatsSet) (err error) {
	if len(set.Lost) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	values := make([]any, 0, len(set.Lost)*3)

	var sb strings.Builder
	sb.WriteString(insertPacketLossSQL)
	for input, lost := range set.Lost {
		if input > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?)")
		values = append(values, importID, input, lost)
	}

	if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting packet loss: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ReadPacketLoss returns the loss counters of a packet stats import in
// input order.
func (s *SqliteStore) ReadPacketLoss(ctx context.Context, importID int64) (lost []uint16, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectPacketLossSQL, importID)
	if err != nil {
		err = fmt.Errorf("querying packet loss: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var input, count int
		if err = rows.Scan(&input, &count); err != nil {
			err = fmt.Errorf("scanning packet loss: %w", err)
			return
		}
		lost = append(lost, uint16(count))
	}
	err = rows.Err()
	return
}

// ReadFringes creates a reader over the fringe series of an import, one
// baseline per iteration, ordered by baseline index.
//
// The returned reader must be closed after use to release database
// resources, and each reader instance should only be used from a single
// goroutine.
func (s *SqliteStore) ReadFringes(ctx context.Context, importID int64, opts ...ReaderOption[mwax.PhasePair]) (*SqliteSeriesReader[mwax.PhasePair], error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteSeriesReader[mwax.PhasePair](ctx, db, importID, fringeSeriesQueries, opts...)
}

// ReadAutos creates a reader over the autocorrelation series of an import,
// one antenna per iteration, ordered by antenna index.
//
// The returned reader must be closed after use to release database
// resources, and each reader instance should only be used from a single
// goroutine.
func (s *SqliteStore) ReadAutos(ctx context.Context, importID int64, opts ...ReaderOption[mwax.PowerPair]) (*SqliteSeriesReader[mwax.PowerPair], error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteSeriesReader[mwax.PowerPair](ctx, db, importID, autoSeriesQueries, opts...)
}

// Close finalizes the archive: query indexes are created once on the write
// connection, then both connections are closed.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}

// insertBatch accumulates rows for a multi-row INSERT and executes it every
// insertBatchRows rows.
type insertBatch struct {
	tx          *sql.Tx
	insertSQL   string
	placeholder string
	perRow      int

	sb     strings.Builder
	values []any
	rows   int
}

func newInsertBatch(tx *sql.Tx, insertSQL, placeholder string) *insertBatch {
	return &insertBatch{
		tx:          tx,
		insertSQL:   insertSQL,
		placeholder: placeholder,
		perRow:      strings.Count(placeholder, "?"),
		values:      make([]any, 0, insertBatchRows*strings.Count(placeholder, "?")),
	}
}

func (b *insertBatch) add(ctx context.Context, row ...any) error {
	if len(row) != b.perRow {
		return fmt.Errorf("row has %d values, expected %d", len(row), b.perRow)
	}

	if b.rows == 0 {
		b.sb.WriteString(b.insertSQL)
	} else {
		b.sb.WriteString(", ")
	}
	b.sb.WriteString(b.placeholder)
	b.values = append(b.values, row...)

	if b.rows++; b.rows == insertBatchRows {
		return b.flush(ctx)
	}
	return nil
}

func (b *insertBatch) flush(ctx context.Context) error {
	if b.rows == 0 {
		return nil
	}

	if _, err := b.tx.ExecContext(ctx, b.sb.String(), b.values...); err != nil {
		return err
	}

	b.sb.Reset()
	b.values = b.values[:0]
	b.rows = 0
	return nil
}
