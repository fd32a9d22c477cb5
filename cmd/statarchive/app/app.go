package app

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/plot"
	"gopkg.in/yaml.v3"

	"github.com/mwatelescope/mwax-plot/internal/mwax"
	"github.com/mwatelescope/mwax-plot/internal/render"
	"github.com/mwatelescope/mwax-plot/internal/report"
	"github.com/mwatelescope/mwax-plot/internal/storage"
)

// Run dispatches the configured archive operation: importing stats product
// files, listing the catalog, printing one import, or rendering one import
// back into a figure.
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	if readOnlyMode(config) {
		if _, err = os.Stat(config.DBPath); err != nil {
			return fmt.Errorf("archive database %s: %w", config.DBPath, err)
		}
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	switch {
	case config.List:
		return listImports(ctx, store)
	case config.InfoID != 0:
		return printImportInfo(ctx, store, config.InfoID)
	case config.PlotID != 0:
		return plotImport(ctx, config, logger, store)
	default:
		return importFiles(ctx, config, logger, store)
	}
}

// readOnlyMode reports whether the invocation only reads the archive, in
// which case the database file must already exist.
func readOnlyMode(config *Config) bool {
	return config.List || config.InfoID != 0 || config.PlotID != 0
}

func importFiles(ctx context.Context, config *Config, logger *slog.Logger, store *storage.SqliteStore) error {
	for _, path := range config.ImportFiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		logger.Debug("importing stats product", slog.String("file", path))

		imp, err := importFile(ctx, store, path)
		if err != nil {
			return err
		}

		logger.Info("imported",
			slog.String("file", path),
			slog.String("product", string(imp.Product)),
			slog.Int64("importID", imp.ID),
			slog.Int("records", imp.RecordCount))
	}

	return nil
}

// importFile decodes the stats product at path and stores it under a new
// import ID.
func importFile(ctx context.Context, store *storage.SqliteStore, path string) (*storage.Import, error) {
	product, err := mwax.DetectProduct(path)
	if err != nil {
		return nil, err
	}

	source := filepath.Base(path)

	var (
		imp     *storage.Import
		persist func(context.Context, int64) error
	)
	switch product {
	case mwax.ProductFringes:
		set, err := mwax.LoadFringes(path)
		if err != nil {
			return nil, err
		}
		imp = storage.NewFringeImport(set.Meta, source, set.Records())
		persist = func(ctx context.Context, id int64) error {
			return store.StoreFringes(ctx, id, set)
		}
	case mwax.ProductAutos:
		set, err := mwax.LoadAutos(path)
		if err != nil {
			return nil, err
		}
		imp = storage.NewAutosImport(set.Meta, source, set.Records())
		persist = func(ctx context.Context, id int64) error {
			return store.StoreAutos(ctx, id, set)
		}
	default:
		set, err := mwax.LoadPacketStats(path)
		if err != nil {
			return nil, err
		}
		imp = storage.NewPacketStatsImport(set.Meta, source)
		persist = func(ctx context.Context, id int64) error {
			return store.StorePacketStats(ctx, id, set)
		}
	}

	if imp.ID, err = store.CreateImport(ctx, imp); err != nil {
		return nil, fmt.Errorf("creating archive import: %w", err)
	}
	if err = persist(ctx, imp.ID); err != nil {
		return nil, fmt.Errorf("storing records: %w", err)
	}

	return imp, nil
}

func listImports(ctx context.Context, store *storage.SqliteStore) error {
	imports, err := store.Imports(ctx)
	if err != nil {
		return err
	}
	if len(imports) == 0 {
		fmt.Println("the archive holds no imports")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tIMPORTED\tPRODUCT\tSOURCE\tOBS\tSERIES\tRECORDS")
	for _, imp := range imports {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
			imp.ID, humanize.Time(imp.ImportedAt), imp.Product, imp.SourceFile,
			imp.ObsID, imp.SeriesCount(), imp.RecordCount)
	}
	return w.Flush()
}

func printImportInfo(ctx context.Context, store *storage.SqliteStore, id int64) error {
	imp, err := store.Import(ctx, id)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(imp)
	if err != nil {
		return fmt.Errorf("marshaling import %d: %w", id, err)
	}
	_, err = os.Stdout.Write(out)
	return err
}

func plotImport(ctx context.Context, config *Config, logger *slog.Logger, store *storage.SqliteStore) error {
	imp, err := store.Import(ctx, config.PlotID)
	if err != nil {
		return err
	}

	logger.Debug("plotting import",
		slog.Int64("importID", imp.ID),
		slog.String("product", string(imp.Product)),
		slog.String("source", imp.SourceFile))

	switch imp.Product {
	case mwax.ProductFringes:
		return plotFringeImport(ctx, config, logger, store, imp)
	case mwax.ProductAutos:
		return plotAutoImport(ctx, config, logger, store, imp)
	case mwax.ProductPacketStats:
		return plotPacketLossImport(ctx, config, logger, store, imp)
	default:
		return fmt.Errorf("import %d holds unknown product %q", imp.ID, imp.Product)
	}
}

func plotFringeImport(ctx context.Context, config *Config, logger *slog.Logger, store *storage.SqliteStore, imp *storage.Import) error {
	type T = mwax.PhasePair

	reader, err := store.ReadFringes(ctx, imp.ID, storage.WithIndex[T](config.Index))
	if err != nil {
		return err
	}
	defer reader.Close()

	series, err := singleSeries[T](ctx, reader, imp, config.Index)
	if err != nil {
		return err
	}

	fig, err := render.FringeFigure(series.Freqs, series.Data, series.Index)
	if err != nil {
		return err
	}

	meta := imp.FringeMeta()
	outPath := outputName(config, fmt.Sprintf("%s_bl%d", importStem(imp), config.Index))
	footer := []string{
		imp.SourceFile,
		fmt.Sprintf("import %d, archived %s", imp.ID, humanize.Time(imp.ImportedAt)),
		fmt.Sprintf("fringes of observation %s, %d baselines x %d fine channels",
			imp.ObsID, meta.Baselines(), meta.FineChans),
	}
	metaRows := [][2]string{
		{"Source file", imp.SourceFile},
		{"Import", fmt.Sprintf("%d, archived %s", imp.ID, humanize.Time(imp.ImportedAt))},
		{"Product", string(imp.Product)},
		{"Observation", imp.ObsID},
		{"Grid", fmt.Sprintf("%d baselines x %d fine channels", meta.Baselines(), meta.FineChans)},
		{"Baseline", strconv.Itoa(config.Index)},
	}

	return writeFigure(config, logger, fig, footer, metaRows, archiveSummary(imp), outPath)
}

func plotAutoImport(ctx context.Context, config *Config, logger *slog.Logger, store *storage.SqliteStore, imp *storage.Import) error {
	type T = mwax.PowerPair

	reader, err := store.ReadAutos(ctx, imp.ID, storage.WithIndex[T](config.Index))
	if err != nil {
		return err
	}
	defer reader.Close()

	series, err := singleSeries[T](ctx, reader, imp, config.Index)
	if err != nil {
		return err
	}

	fig, err := render.AutosFigure(series.Freqs, series.Data, series.Index)
	if err != nil {
		return err
	}

	outPath := outputName(config, fmt.Sprintf("%s_ant%d", importStem(imp), config.Index))
	footer := []string{
		imp.SourceFile,
		fmt.Sprintf("import %d, archived %s", imp.ID, humanize.Time(imp.ImportedAt)),
		fmt.Sprintf("autocorrelations of observation %s, %d antennas x %d fine channels",
			imp.ObsID, imp.Tiles, imp.FineChans),
	}
	metaRows := [][2]string{
		{"Source file", imp.SourceFile},
		{"Import", fmt.Sprintf("%d, archived %s", imp.ID, humanize.Time(imp.ImportedAt))},
		{"Product", string(imp.Product)},
		{"Observation", imp.ObsID},
		{"Grid", fmt.Sprintf("%d antennas x %d fine channels", imp.Tiles, imp.FineChans)},
		{"Antenna", strconv.Itoa(config.Index)},
	}

	return writeFigure(config, logger, fig, footer, metaRows, archiveSummary(imp), outPath)
}

func plotPacketLossImport(ctx context.Context, config *Config, logger *slog.Logger, store *storage.SqliteStore, imp *storage.Import) error {
	if config.Index != 0 {
		return fmt.Errorf("packet loss figures cover all inputs, -index %d is not supported", config.Index)
	}

	lost, err := store.ReadPacketLoss(ctx, imp.ID)
	if err != nil {
		return err
	}

	meta := imp.PacketStatsMeta()
	fig, err := render.PacketLossFigure(lost, meta)
	if err != nil {
		return err
	}

	outPath := outputName(config, importStem(imp))
	footer := []string{
		imp.SourceFile,
		fmt.Sprintf("import %d, archived %s", imp.ID, humanize.Time(imp.ImportedAt)),
		fmt.Sprintf("packet loss for subobservation %s, coarse channel %d, host %s",
			meta.SubobsID, meta.CoarseChan, meta.Hostname),
	}
	metaRows := [][2]string{
		{"Source file", imp.SourceFile},
		{"Import", fmt.Sprintf("%d, archived %s", imp.ID, humanize.Time(imp.ImportedAt))},
		{"Product", string(imp.Product)},
		{"Subobservation", meta.SubobsID},
		{"Coarse channel", strconv.Itoa(meta.CoarseChan)},
		{"Host", meta.Hostname},
		{"Inputs", strconv.Itoa(meta.Inputs())},
	}

	return writeFigure(config, logger, fig, footer, metaRows, archiveSummary(imp), outPath)
}

// singleSeries drains the reader, which is filtered to one index, and
// returns its only series.
func singleSeries[T storage.SeriesData](ctx context.Context, reader storage.SeriesReader[T], imp *storage.Import, index int) (*storage.Series[T], error) {
	if !reader.Next(ctx) {
		if err := reader.Error(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("import %d holds no records for index %d", imp.ID, index)
	}
	return reader.Current(), nil
}

// writeFigure renders the figure to the configured format and writes it to
// outPath. The footer lines are composed under the figure unless annotations
// are disabled, and the metadata rows and summary lines fill the PDF report
// around it.
func writeFigure(config *Config, logger *slog.Logger, fig *plot.Plot, footer []string, metaRows [][2]string, summary []string, outPath string) error {
	renderer, err := render.New(render.Config{Footer: !config.NoAnnotations})
	if err != nil {
		return err
	}

	img, err := renderer.PNG(fig, footer)
	if err != nil {
		return err
	}

	switch config.Format {
	case FormatPDF:
		var buf bytes.Buffer
		if err = report.Build(&buf, report.Params{
			Title:   fig.Title.Text,
			Meta:    metaRows,
			Figure:  img,
			Summary: summary,
		}); err == nil {
			err = os.WriteFile(outPath, buf.Bytes(), 0o644)
		}
	default:
		err = os.WriteFile(outPath, img, 0o644)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	logger.Info("figure written",
		slog.String("destination", outPath),
		slog.String("format", string(config.Format)))
	return nil
}

func archiveSummary(imp *storage.Import) []string {
	return []string{
		fmt.Sprintf("%d records imported from %s on %s",
			imp.RecordCount, imp.SourceFile, imp.ImportedAt.Format("2006-01-02 15:04:05 MST")),
	}
}

// outputName resolves the output file path. An explicit -o stem wins over
// the stem derived from the import's source file, and the format extension
// is appended either way.
func outputName(config *Config, defaultStem string) string {
	stem := config.OutputStem
	if stem == "" {
		stem = defaultStem
	}
	return fmt.Sprintf("%s.%s", stem, config.Format)
}

// importStem is the import's source file name without extension.
func importStem(imp *storage.Import) string {
	return strings.TrimSuffix(imp.SourceFile, filepath.Ext(imp.SourceFile))
}
