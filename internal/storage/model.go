package storage

import (
	"time"

	"github.com/mwatelescope/mwax-plot/internal/mwax"
)

// Import is one archive catalog entry: a single stats product file together
// with the observation parameters carried by its filename.
type Import struct {
	ID          int64        `yaml:"id"`
	ImportedAt  time.Time    `yaml:"importedAt"`
	Product     mwax.Product `yaml:"product"`
	SourceFile  string       `yaml:"sourceFile"`
	ObsID       string       `yaml:"obsID"`
	FineChans   int          `yaml:"fineChans,omitempty"`
	Tiles       int          `yaml:"tiles"`
	RecvChan    int          `yaml:"receiverChannel,omitempty"`
	Hostname    string       `yaml:"hostname,omitempty"`
	RecordCount int          `yaml:"records"`
}

// NewFringeImport builds the catalog entry for a decoded fringes product.
func NewFringeImport(meta mwax.FringeFileMeta, sourceFile string, records int) *Import {
	return &Import{
		Product:     mwax.ProductFringes,
		SourceFile:  sourceFile,
		ObsID:       meta.ObsID,
		FineChans:   meta.FineChans,
		Tiles:       meta.Tiles,
		RecvChan:    meta.ReceiverChan,
		RecordCount: records,
	}
}

// NewAutosImport builds the catalog entry for a decoded autos product.
func NewAutosImport(meta mwax.AutosFileMeta, sourceFile string, records int) *Import {
	return &Import{
		Product:     mwax.ProductAutos,
		SourceFile:  sourceFile,
		ObsID:       meta.ObsID,
		FineChans:   meta.FineChans,
		Tiles:       meta.Tiles,
		RecordCount: records,
	}
}

// NewPacketStatsImport builds the catalog entry for a decoded packet stats
// product. The subobservation ID takes the obs_id column, the coarse channel
// the recv_chan column.
func NewPacketStatsImport(meta mwax.PacketStatsFileMeta, sourceFile string) *Import {
	return &Import{
		Product:     mwax.ProductPacketStats,
		SourceFile:  sourceFile,
		ObsID:       meta.SubobsID,
		Tiles:       meta.Tiles,
		RecvChan:    meta.CoarseChan,
		Hostname:    meta.Hostname,
		RecordCount: meta.Inputs(),
	}
}

// FringeMeta reconstructs the filename metadata of a fringes import.
func (i *Import) FringeMeta() mwax.FringeFileMeta {
	return mwax.FringeFileMeta{ObsID: i.ObsID, FineChans: i.FineChans, Tiles: i.Tiles, ReceiverChan: i.RecvChan}
}

// AutosMeta reconstructs the filename metadata of an autos import.
func (i *Import) AutosMeta() mwax.AutosFileMeta {
	return mwax.AutosFileMeta{ObsID: i.ObsID, FineChans: i.FineChans, Tiles: i.Tiles}
}

// PacketStatsMeta reconstructs the filename metadata of a packet stats
// import.
func (i *Import) PacketStatsMeta() mwax.PacketStatsFileMeta {
	return mwax.PacketStatsFileMeta{SubobsID: i.ObsID, Tiles: i.Tiles, CoarseChan: i.RecvChan, Hostname: i.Hostname}
}

// SeriesCount returns the number of plottable series the import holds: one
// per baseline for fringes, one per antenna for autos. Packet stats have a
// single figure and no series.
func (i *Import) SeriesCount() int {
	switch i.Product {
	case mwax.ProductFringes:
		return i.FringeMeta().Baselines()
	case mwax.ProductAutos:
		return i.Tiles
	default:
		return 0
	}
}
