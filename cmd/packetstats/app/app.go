package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/mwatelescope/mwax-plot/internal/subfile"
)

// Run extracts packet loss statistics from each configured subfile and
// writes one stats product per subfile into the output directory. Subfiles
// are processed in order; a cancelled context stops before the next one.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if info, err := os.Stat(config.OutDir); err != nil {
		return fmt.Errorf("output directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", config.OutDir)
	}

	for _, path := range config.Subfiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("subfile: %w", err)
		}

		logger.Debug("processing subfile",
			slog.String("file", path),
			slog.String("size", humanize.IBytes(uint64(info.Size()))))

		res, err := subfile.Process(path, config.OutDir, config.Hostname)
		if err != nil {
			return err
		}

		logger.Info("packet stats written",
			slog.String("subfile", path),
			slog.String("size", humanize.IBytes(uint64(info.Size()))),
			slog.String("destination", res.Path),
			slog.String("subobservation", res.Header.SubobsID),
			slog.String("coarseChan", res.Header.CoarseChan),
			slog.Int("inputs", res.Header.NInputs),
			slog.Int("totalLost", res.TotalLost()))
	}

	return nil
}
