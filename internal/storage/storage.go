// Package storage persists decoded MWAX stats products in a SQLite archive
// so that observations can be catalogued, listed and re-plotted without the
// original .dat files.
package storage

import (
	"context"

	"github.com/mwatelescope/mwax-plot/internal/mwax"
)

// Store defines the archive operations shared by any backend. Series reads
// are generic over the record type and therefore live on SqliteStore
// directly (Go interfaces cannot carry type-parameterised methods).
type Store interface {
	// CreateImport inserts the catalog entry for one decoded product file
	// and returns its ID.
	CreateImport(ctx context.Context, imp *Import) (int64, error)

	// Import returns the catalog entry with the given ID.
	Import(ctx context.Context, id int64) (*Import, error)

	// Imports returns all catalog entries in import order.
	Imports(ctx context.Context) ([]*Import, error)

	// StoreFringes writes the decoded fringe grid under an import.
	StoreFringes(ctx context.Context, importID int64, set *mwax.FringeSet) error

	// StoreAutos writes the decoded autocorrelation grid under an import.
	StoreAutos(ctx context.Context, importID int64, set *mwax.AutoSet) error

	// StorePacketStats writes the per input loss counters under an import.
	StorePacketStats(ctx context.Context, importID int64, set *mwax.PacketStatsSet) error

	// ReadPacketLoss returns the loss counters of a packet stats import in
	// input order.
	ReadPacketLoss(ctx context.Context, importID int64) ([]uint16, error)

	// Close flushes and closes the backend. The store must not be used
	// afterwards.
	Close() error
}

var _ Store = (*SqliteStore)(nil)
