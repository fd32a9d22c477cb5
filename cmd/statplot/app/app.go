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

	"github.com/dustin/go-humanize"
	"gonum.org/v1/plot"
	"gopkg.in/yaml.v3"

	"github.com/mwatelescope/mwax-plot/internal/mwax"
	"github.com/mwatelescope/mwax-plot/internal/render"
	"github.com/mwatelescope/mwax-plot/internal/report"
	"github.com/mwatelescope/mwax-plot/internal/storage"
)

// inspectView is the file metadata printed by the -inspect flag.
type inspectView struct {
	File          string `yaml:"file"`
	Product       string `yaml:"product"`
	ObsID         string `yaml:"obsID,omitempty"`
	SubobsID      string `yaml:"subobsID,omitempty"`
	FineChans     int    `yaml:"fineChans,omitempty"`
	Tiles         int    `yaml:"tiles"`
	Baselines     int    `yaml:"baselines,omitempty"`
	Inputs        int    `yaml:"inputs,omitempty"`
	ReceiverChan  int    `yaml:"receiverChannel,omitempty"`
	CoarseChan    int    `yaml:"coarseChannel,omitempty"`
	Hostname      string `yaml:"hostname,omitempty"`
	RecordBytes   int    `yaml:"recordBytes"`
	ExpectedBytes int64  `yaml:"expectedBytes"`
	ActualBytes   int64  `yaml:"actualBytes"`
	ActualSize    string `yaml:"actualSize"`
	Aligned       bool   `yaml:"aligned"`
	Complete      bool   `yaml:"complete"`
}

// seriesReport carries summary statistics of one plotted series.
type seriesReport struct {
	pol   string
	stats mwax.SeriesSummary
	fit   *mwax.DelayFit // nil when a delay fit is meaningless for the series
}

// Run detects the stats product from the input file name, decodes it and
// renders the figure. Depending on configuration it may instead print file
// metadata, and may additionally import the decoded product into an archive
// database.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	product, err := mwax.DetectProduct(config.InputFile)
	if err != nil {
		return err
	}

	logger.Debug("detected product",
		slog.String("file", config.InputFile),
		slog.String("product", string(product)))

	switch product {
	case mwax.ProductFringes:
		return runFringes(ctx, config, logger)
	case mwax.ProductAutos:
		return runAutos(ctx, config, logger)
	default:
		return runPacketStats(ctx, config, logger)
	}
}

func runFringes(ctx context.Context, config *Config, logger *slog.Logger) error {
	meta, err := mwax.ParseFringeFilename(config.InputFile)
	if err != nil {
		return err
	}

	size, err := fileSize(config.InputFile)
	if err != nil {
		return err
	}

	if config.Inspect {
		return printInspect(inspectView{
			File:          filepath.Base(config.InputFile),
			Product:       string(mwax.ProductFringes),
			ObsID:         meta.ObsID,
			FineChans:     meta.FineChans,
			Tiles:         meta.Tiles,
			Baselines:     meta.Baselines(),
			ReceiverChan:  meta.ReceiverChan,
			RecordBytes:   mwax.RecordSize,
			ExpectedBytes: meta.ExpectedSize(),
			ActualBytes:   size,
			ActualSize:    humanize.IBytes(uint64(size)),
			Aligned:       aligned(size, mwax.RecordSize, meta.ExpectedSize()),
			Complete:      size == meta.ExpectedSize(),
		})
	}

	if config.Index >= meta.Baselines() {
		return fmt.Errorf("baseline %d out of range [0, %d)", config.Index, meta.Baselines())
	}

	logger.Info("decoding fringes",
		slog.String("file", config.InputFile),
		slog.String("observation", meta.ObsID),
		slog.Int("fineChans", meta.FineChans),
		slog.Int("tiles", meta.Tiles),
		slog.Int("baselines", meta.Baselines()),
		slog.String("size", humanize.IBytes(uint64(size))))

	warnTruncated(logger, size, meta.ExpectedSize())

	set, err := mwax.LoadFringes(config.InputFile)
	if err != nil {
		return err
	}

	phases, err := set.Baseline(config.Index)
	if err != nil {
		return err
	}

	reports := fringeReports(set.Freqs, phases)
	if config.Stats {
		logReports(logger, "deg", reports)
	}

	fig, err := render.FringeFigure(set.Freqs, phases, config.Index)
	if err != nil {
		return err
	}

	outPath := outputName(config, fmt.Sprintf("%s_bl%d", inputStem(config.InputFile), config.Index))
	footer := []string{
		filepath.Base(config.InputFile),
		fmt.Sprintf("fringes of observation %s, receiver channel %d", meta.ObsID, meta.ReceiverChan),
		fmt.Sprintf("%d baselines x %d fine channels, %s on disk, %d records decoded",
			meta.Baselines(), meta.FineChans, humanize.IBytes(uint64(size)), set.Records()),
	}
	metaRows := [][2]string{
		{"File", filepath.Base(config.InputFile)},
		{"Product", string(mwax.ProductFringes)},
		{"Observation", meta.ObsID},
		{"Receiver channel", strconv.Itoa(meta.ReceiverChan)},
		{"Grid", fmt.Sprintf("%d baselines x %d fine channels", meta.Baselines(), meta.FineChans)},
		{"Payload", fmt.Sprintf("%s, %d records decoded", humanize.IBytes(uint64(size)), set.Records())},
		{"Baseline", strconv.Itoa(config.Index)},
	}

	if err = writeFigure(config, logger, fig, footer, metaRows, reportLines("deg", reports), outPath); err != nil {
		return err
	}

	if config.DBPath == "" {
		return nil
	}

	return archiveImport(ctx, config, logger,
		storage.NewFringeImport(meta, filepath.Base(config.InputFile), set.Records()),
		func(ctx context.Context, s *storage.SqliteStore, id int64) error {
			return s.StoreFringes(ctx, id, set)
		})
}

func runAutos(ctx context.Context, config *Config, logger *slog.Logger) error {
	meta, err := mwax.ParseAutosFilename(config.InputFile)
	if err != nil {
		return err
	}

	size, err := fileSize(config.InputFile)
	if err != nil {
		return err
	}

	if config.Inspect {
		return printInspect(inspectView{
			File:          filepath.Base(config.InputFile),
			Product:       string(mwax.ProductAutos),
			ObsID:         meta.ObsID,
			FineChans:     meta.FineChans,
			Tiles:         meta.Tiles,
			RecordBytes:   mwax.RecordSize,
			ExpectedBytes: meta.ExpectedSize(),
			ActualBytes:   size,
			ActualSize:    humanize.IBytes(uint64(size)),
			Aligned:       aligned(size, mwax.RecordSize, meta.ExpectedSize()),
			Complete:      size == meta.ExpectedSize(),
		})
	}

	if config.Index >= meta.Tiles {
		return fmt.Errorf("antenna %d out of range [0, %d)", config.Index, meta.Tiles)
	}

	logger.Info("decoding autos",
		slog.String("file", config.InputFile),
		slog.String("observation", meta.ObsID),
		slog.Int("fineChans", meta.FineChans),
		slog.Int("tiles", meta.Tiles),
		slog.String("size", humanize.IBytes(uint64(size))))

	warnTruncated(logger, size, meta.ExpectedSize())

	set, err := mwax.LoadAutos(config.InputFile)
	if err != nil {
		return err
	}

	powers, err := set.Antenna(config.Index)
	if err != nil {
		return err
	}

	reports := autoReports(powers)
	if config.Stats {
		logReports(logger, "dB", reports)
	}

	fig, err := render.AutosFigure(set.Freqs, powers, config.Index)
	if err != nil {
		return err
	}

	outPath := outputName(config, fmt.Sprintf("%s_ant%d", inputStem(config.InputFile), config.Index))
	footer := []string{
		filepath.Base(config.InputFile),
		fmt.Sprintf("autocorrelations of observation %s", meta.ObsID),
		fmt.Sprintf("%d antennas x %d fine channels, %s on disk, %d records decoded",
			meta.Tiles, meta.FineChans, humanize.IBytes(uint64(size)), set.Records()),
	}
	metaRows := [][2]string{
		{"File", filepath.Base(config.InputFile)},
		{"Product", string(mwax.ProductAutos)},
		{"Observation", meta.ObsID},
		{"Grid", fmt.Sprintf("%d antennas x %d fine channels", meta.Tiles, meta.FineChans)},
		{"Payload", fmt.Sprintf("%s, %d records decoded", humanize.IBytes(uint64(size)), set.Records())},
		{"Antenna", strconv.Itoa(config.Index)},
	}

	if err = writeFigure(config, logger, fig, footer, metaRows, reportLines("dB", reports), outPath); err != nil {
		return err
	}

	if config.DBPath == "" {
		return nil
	}

	return archiveImport(ctx, config, logger,
		storage.NewAutosImport(meta, filepath.Base(config.InputFile), set.Records()),
		func(ctx context.Context, s *storage.SqliteStore, id int64) error {
			return s.StoreAutos(ctx, id, set)
		})
}

func runPacketStats(ctx context.Context, config *Config, logger *slog.Logger) error {
	meta, err := mwax.ParsePacketStatsFilename(config.InputFile)
	if err != nil {
		return err
	}

	size, err := fileSize(config.InputFile)
	if err != nil {
		return err
	}

	if config.Inspect {
		return printInspect(inspectView{
			File:          filepath.Base(config.InputFile),
			Product:       string(mwax.ProductPacketStats),
			SubobsID:      meta.SubobsID,
			Tiles:         meta.Tiles,
			Inputs:        meta.Inputs(),
			CoarseChan:    meta.CoarseChan,
			Hostname:      meta.Hostname,
			RecordBytes:   mwax.LossEntrySize,
			ExpectedBytes: meta.ExpectedSize(),
			ActualBytes:   size,
			ActualSize:    humanize.IBytes(uint64(size)),
			Aligned:       aligned(size, mwax.LossEntrySize, meta.ExpectedSize()),
			Complete:      size == meta.ExpectedSize(),
		})
	}

	if config.Index != 0 {
		return fmt.Errorf("packet stats figures cover all inputs, baseline argument %d is not supported", config.Index)
	}

	logger.Info("decoding packet stats",
		slog.String("file", config.InputFile),
		slog.String("subobservation", meta.SubobsID),
		slog.Int("tiles", meta.Tiles),
		slog.Int("inputs", meta.Inputs()),
		slog.Int("coarseChan", meta.CoarseChan),
		slog.String("host", meta.Hostname))

	set, err := mwax.LoadPacketStats(config.InputFile)
	if err != nil {
		return err
	}

	total, worst := 0, 0
	for input, lost := range set.Lost {
		total += int(lost)
		if lost > set.Lost[worst] {
			worst = input
		}
	}

	if config.Stats {
		logger.Info("loss summary",
			slog.Int("inputs", meta.Inputs()),
			slog.Int("totalLost", total),
			slog.Int("cleanInputs", meta.Inputs()-len(set.Rejected())),
			slog.Int("worstInput", worst),
			slog.Int("worstLost", int(set.Lost[worst])))
	}

	fig, err := render.PacketLossFigure(set.Lost, meta)
	if err != nil {
		return err
	}

	outPath := outputName(config, inputStem(config.InputFile))
	footer := []string{
		filepath.Base(config.InputFile),
		fmt.Sprintf("packet loss for subobservation %s, coarse channel %d, host %s",
			meta.SubobsID, meta.CoarseChan, meta.Hostname),
		fmt.Sprintf("%d RF inputs (%d tiles), %d packets lost in total", meta.Inputs(), meta.Tiles, total),
	}
	metaRows := [][2]string{
		{"File", filepath.Base(config.InputFile)},
		{"Product", string(mwax.ProductPacketStats)},
		{"Subobservation", meta.SubobsID},
		{"Coarse channel", strconv.Itoa(meta.CoarseChan)},
		{"Host", meta.Hostname},
		{"Inputs", fmt.Sprintf("%d (%d tiles)", meta.Inputs(), meta.Tiles)},
	}
	summary := []string{
		fmt.Sprintf("%d packets lost in total, %d of %d inputs rejected data, worst input %d lost %d",
			total, len(set.Rejected()), meta.Inputs(), worst, set.Lost[worst]),
	}

	if err = writeFigure(config, logger, fig, footer, metaRows, summary, outPath); err != nil {
		return err
	}

	if config.DBPath == "" {
		return nil
	}

	return archiveImport(ctx, config, logger,
		storage.NewPacketStatsImport(meta, filepath.Base(config.InputFile)),
		func(ctx context.Context, s *storage.SqliteStore, id int64) error {
			return s.StorePacketStats(ctx, id, set)
		})
}

// writeFigure renders the figure to the configured format and writes it to
// outPath. The footer lines are composed under the figure unless annotations
// are disabled, and the metadata rows and summary lines fill the PDF report
// around it.
func writeFigure(config *Config, logger *slog.Logger, fig *plot.Plot, footer []string, metaRows [][2]string, summary []string, outPath string) error {
	if config.Title != "" {
		fig.Title.Text = config.Title
	}

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

// archiveImport stores the decoded product in the archive database named by
// the configuration. The import row is created first and persist fills the
// product table under the new import ID.
func archiveImport(ctx context.Context, config *Config, logger *slog.Logger, imp *storage.Import, persist func(context.Context, *storage.SqliteStore, int64) error) (err error) {
	store := storage.NewSqliteStore(config.DBPath)
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	id, err := store.CreateImport(ctx, imp)
	if err != nil {
		return fmt.Errorf("creating archive import: %w", err)
	}
	if err = persist(ctx, store, id); err != nil {
		return fmt.Errorf("storing records: %w", err)
	}

	logger.Info("imported into archive",
		slog.String("db", config.DBPath),
		slog.Int64("importID", id),
		slog.String("product", string(imp.Product)))
	return nil
}

func fringeReports(freqs []float64, phases []mwax.PhasePair) []seriesReport {
	x, y := mwax.SplitPhases(phases)
	xFit, yFit := mwax.FitDelay(freqs, x), mwax.FitDelay(freqs, y)
	return []seriesReport{
		{pol: "X", stats: mwax.Summarize(x), fit: &xFit},
		{pol: "Y", stats: mwax.Summarize(y), fit: &yFit},
	}
}

func autoReports(powers []mwax.PowerPair) []seriesReport {
	xx, yy := mwax.SplitPowers(powers)
	return []seriesReport{
		{pol: "XX", stats: mwax.Summarize(xx)},
		{pol: "YY", stats: mwax.Summarize(yy)},
	}
}

func logReports(logger *slog.Logger, unit string, reports []seriesReport) {
	for _, r := range reports {
		attrs := []any{
			slog.String("pol", r.pol),
			slog.String("mean", fmt.Sprintf("%0.2f %s", r.stats.Mean, unit)),
			slog.String("stdDev", fmt.Sprintf("%0.2f %s", r.stats.StdDev, unit)),
			slog.String("min", fmt.Sprintf("%0.2f %s", r.stats.Min, unit)),
			slog.String("max", fmt.Sprintf("%0.2f %s", r.stats.Max, unit)),
		}
		if r.fit != nil {
			attrs = append(attrs,
				slog.String("delay", fmt.Sprintf("%0.2f ns", r.fit.DelayNS)),
				slog.String("fitR2", fmt.Sprintf("%0.3f", r.fit.R2)))
		}
		logger.Info("series summary", attrs...)
	}
}

func reportLines(unit string, reports []seriesReport) []string {
	lines := make([]string, 0, len(reports))
	for _, r := range reports {
		line := fmt.Sprintf("%s: mean %0.2f %s, std %0.2f %s, range [%0.2f, %0.2f] %s",
			r.pol, r.stats.Mean, unit, r.stats.StdDev, unit, r.stats.Min, r.stats.Max, unit)
		if r.fit != nil {
			line += fmt.Sprintf(", delay %0.2f ns (R2 %0.3f)", r.fit.DelayNS, r.fit.R2)
		}
		lines = append(lines, line)
	}
	return lines
}

func warnTruncated(logger *slog.Logger, size, expected int64) {
	if size < expected {
		logger.Warn("payload is shorter than the filename advertises, missing cells plot as zero",
			slog.Int64("expected", expected),
			slog.Int64("actual", size))
	}
}

func printInspect(v inspectView) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("inspecting %s: %w", path, err)
	}
	return info.Size(), nil
}

// aligned reports whether size holds a whole number of records without
// exceeding a complete payload.
func aligned(size int64, recordBytes int, expected int64) bool {
	return size%int64(recordBytes) == 0 && size <= expected
}

// outputName resolves the output file path. An explicit -o stem wins over
// the stem derived from the input file name, and the format extension is
// appended either way.
func outputName(config *Config, defaultStem string) string {
	stem := config.OutputStem
	if stem == "" {
		stem = defaultStem
	}
	return fmt.Sprintf("%s.%s", stem, config.Format)
}

// inputStem is the input file name without directory and product extension.
func inputStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
