package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// Config contains packetstats configuration.
type Config struct {
	Subfiles []string // Subfiles to extract packet stats from
	OutDir   string   // Directory for the stats product files
	Hostname string   // Capture hostname recorded in the output names
	Verbose  bool     // Verbose output
}

// NewConfig creates default configuration. The hostname defaults to the
// local host because the extraction normally runs on the capture machine
// itself.
func NewConfig() *Config {
	host, _ := os.Hostname()
	return &Config{
		OutDir:   ".",
		Hostname: host,
	}
}

// NewConfigFromCLI creates configuration from the command line flags and
// the SUBFILE positional arguments.
func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	flag.StringVar(&c.OutDir, "o", c.OutDir, "Directory to write the stats product files into")
	flag.StringVar(&c.Hostname, "hostname", c.Hostname, "Hostname recorded in the stats product filenames")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable verbose output")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] SUBFILE [SUBFILE...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}

	flag.Parse()

	var err error
	if flag.NArg() < 1 {
		err = errors.New("at least one subfile is required")
	} else if c.Hostname == "" {
		err = errors.New("hostname is required")
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Subfiles = flag.Args()

	return c, nil
}
