package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"openfms/fitstream/internal/config"
)

// Flags are the command line flags shared by the FIT tools. Settings are
// layered: environment, then the --config file, then explicitly set flags.
type Flags struct {
	fs  *pflag.FlagSet
	out io.Writer

	configPath  string
	chunkSize   int
	skip        bool
	format      string
	logLevel    string
	metricsFile string
	wgs84       bool
}

// NewFlags defines the flags of the named command. The --wgs84 flag is only
// defined when withWGS84 is set.
func NewFlags(name string, withWGS84 bool) *Flags {
	f := &Flags{fs: pflag.NewFlagSet(name, pflag.ContinueOnError), out: os.Stderr}
	f.fs.SortFlags = false
	f.fs.Usage = func() {
		fmt.Fprintf(f.out, "Usage: %s [flags] [file.fit ...]\n\nReads stdin when no file is given.\n\n", name)
		f.fs.PrintDefaults()
	}

	f.fs.StringVarP(&f.configPath, "config", "c", "", "YAML or JSON configuration file")
	f.fs.IntVar(&f.chunkSize, "chunk-size", 0, "bytes per read from each input")
	f.fs.BoolVar(&f.skip, "skip-undecodable", false, "log and skip undecodable data instead of aborting")
	f.fs.StringVarP(&f.format, "format", "f", "", "output format: json, cbor or yaml")
	f.fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when done")
	if withWGS84 {
		f.fs.BoolVar(&f.wgs84, "wgs84", false, "add WGS84 degree fields next to semicircle positions")
	}
	return f
}

// SetOutput redirects usage and error messages.
func (f *Flags) SetOutput(w io.Writer) {
	f.out = w
	f.fs.SetOutput(w)
}

// Parse parses args and returns the resulting configuration and the
// positional arguments.
func (f *Flags) Parse(args []string) (*config.Config, []string, error) {
	if err := f.fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg := config.Load()
	if f.configPath != "" {
		if err := cfg.LoadFile(f.configPath); err != nil {
			return nil, nil, err
		}
	}

	if f.fs.Changed("chunk-size") {
		cfg.ChunkSize = f.chunkSize
	}
	if f.fs.Changed("skip-undecodable") {
		cfg.SkipUndecodable = f.skip
	}
	if f.fs.Changed("format") {
		cfg.OutputFormat = f.format
	}
	if f.fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if f.fs.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if f.fs.Lookup("wgs84") != nil && f.fs.Changed("wgs84") {
		cfg.WGS84 = f.wgs84
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, f.fs.Args(), nil
}
