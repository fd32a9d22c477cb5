package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	FormatPNG OutputFormat = "png"
	FormatPDF OutputFormat = "pdf"
)

// OutputFormat is the type of the rendered output file.
type OutputFormat string

// Config contains statplot configuration.
type Config struct {
	InputFile     string       // Stats product to plot
	Index         int          // Baseline or antenna to plot
	OutputStem    string       // Output file path without extension
	Format        OutputFormat // Output file format
	Title         string       // Figure title override
	DBPath        string       // Archive database to import the product into
	Inspect       bool         // Print file metadata and exit
	Stats         bool         // Log series summary statistics
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
// the FILENAME [BASELINE_NUMBER] positional arguments.
func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var outputFormat string

	flag.StringVar(&c.OutputStem, "o", "", "Output file path without extension. Derived from the input file when empty")
	flag.StringVar(&outputFormat, "f", string(FormatPNG), "Output file format. [png, pdf]")
	flag.StringVar(&c.Title, "title", "", "Figure title override")
	flag.StringVar(&c.DBPath, "db", "", "Import the decoded product into this archive database")
	flag.BoolVar(&c.Inspect, "inspect", false, "Print file metadata as YAML and exit without plotting")
	flag.BoolVar(&c.Stats, "stats", false, "Log summary statistics of the plotted series")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable the metadata footer under the figure")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable verbose output")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] FILENAME [BASELINE_NUMBER]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}

	flag.Parse()

	outputFormat = strings.ToLower(outputFormat)

	var err error
	if flag.NArg() < 1 {
		err = errors.New("input file is required")
	} else if flag.NArg() > 2 {
		err = fmt.Errorf("unexpected argument: %s", flag.Arg(2))
	} else if _, ok := validOutputFormats[OutputFormat(outputFormat)]; !ok {
		err = fmt.Errorf("invalid output format: %s", outputFormat)
	} else if flag.NArg() == 2 {
		if c.Index, err = strconv.Atoi(flag.Arg(1)); err != nil {
			err = fmt.Errorf("invalid baseline number: %s", flag.Arg(1))
		} else if c.Index < 0 {
			err = fmt.Errorf("baseline number must not be negative: %d", c.Index)
		}
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.InputFile = flag.Arg(0)
	c.Format = OutputFormat(outputFormat)

	return c, nil
}
