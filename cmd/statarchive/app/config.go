package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	FormatPNG OutputFormat = "png"
	FormatPDF OutputFormat = "pdf"
)

// OutputFormat is the type of the rendered output file.
type OutputFormat string

// Config contains statarchive configuration. Exactly one of the four modes
// is active per invocation: importing the FILENAME arguments, listing the
// catalog, printing one import, or plotting one import.
type Config struct {
	DBPath        string       // Archive database path
	ImportFiles   []string     // Stats products to import
	List          bool         // List the import catalog
	InfoID        int64        // Import to print metadata for
	PlotID        int64        // Import to plot
	Index         int          // Baseline or antenna to plot
	OutputStem    string       // Output file path without extension
	Format        OutputFormat // Output file format
	NoAnnotations bool         // Disable the metadata footer under the figure
	Verbose       bool         // Verbose output
}

var validOutputFormats = map[OutputFormat]struct{}{
	FormatPNG: {},
	FormatPDF: {},
}

// NewConfig creates default configuration.
func NewConfig() *Config {
	return &Config{
		Format: FormatPNG,
	}
}

// NewConfigFromCLI creates configuration from the command line flags and
// the FILENAME positional arguments.
func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var outputFormat string

	flag.StringVar(&c.DBPath, "db", "", "Archive database path")
	flag.BoolVar(&c.List, "list", false, "List the archived imports")
	flag.Int64Var(&c.InfoID, "info", 0, "Print metadata of the import with this ID as YAML")
	flag.Int64Var(&c.PlotID, "plot", 0, "Plot the import with this ID")
	flag.IntVar(&c.Index, "index", 0, "Baseline or antenna to plot, with -plot")
	flag.StringVar(&c.OutputStem, "o", "", "Output file path without extension. Derived from the import when empty")
	flag.StringVar(&outputFormat, "f", string(FormatPNG), "Output file format. [png, pdf]")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable the metadata footer under the figure")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable verbose output")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [FILENAME...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}

	flag.Parse()

	outputFormat = strings.ToLower(outputFormat)

	modes := 0
	if flag.NArg() > 0 {
		modes++
	}
	if c.List {
		modes++
	}
	if c.InfoID != 0 {
		modes++
	}
	if c.PlotID != 0 {
		modes++
	}

	var err error
	if c.DBPath == "" {
		err = errors.New("archive database is required")
	} else if modes == 0 {
		err = errors.New("FILENAME arguments, -list, -info or -plot is required")
	} else if modes > 1 {
		err = errors.New("FILENAME arguments, -list, -info and -plot are mutually exclusive")
	} else if c.InfoID < 0 {
		err = fmt.Errorf("invalid import ID: %d", c.InfoID)
	} else if c.PlotID < 0 {
		err = fmt.Errorf("invalid import ID: %d", c.PlotID)
	} else if c.Index < 0 {
		err = fmt.Errorf("index must not be negative: %d", c.Index)
	} else if _, ok := validOutputFormats[OutputFormat(outputFormat)]; !ok {
		err = fmt.Errorf("invalid output format: %s", outputFormat)
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.ImportFiles = flag.Args()
	c.Format = OutputFormat(outputFormat)

	return c, nil
}
