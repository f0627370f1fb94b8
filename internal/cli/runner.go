// Package cli holds the input handling shared by the FIT command line tools.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"openfms/fitstream/internal/adapter"
	"openfms/fitstream/internal/config"
	"openfms/fitstream/internal/inflate"
	"openfms/fitstream/internal/metrics"
	"openfms/fitstream/internal/protocol"
	"openfms/fitstream/internal/stream"
)

// Stdin is the input name that reads standard input.
const Stdin = "-"

// Runner decodes a list of inputs with one configuration
type Runner struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	logger  zerolog.Logger
	stdin   io.Reader
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger for the runner and its streams.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithStdin replaces os.Stdin as the source of the "-" input.
func WithStdin(stdin io.Reader) Option {
	return func(r *Runner) {
		r.stdin = stdin
	}
}

// NewRunner creates a new runner
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		metrics: metrics.New(),
		logger:  zerolog.Nop(),
		stdin:   os.Stdin,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metrics returns the collectors shared by all inputs of the run.
func (r *Runner) Metrics() *metrics.Metrics {
	return r.metrics
}

// Inputs returns the input names for the positional arguments: stdin when
// there are none.
func Inputs(args []string) []string {
	if len(args) == 0 {
		return []string{Stdin}
	}
	return args
}

// Each decodes every input in turn and calls fn for each record. fn is
// called with a nil record once an input is finished. With skipping enabled
// decode errors are logged and decoding goes on; source errors always abort.
func (r *Runner) Each(ctx context.Context, inputs []string, fn func(name string, rec *protocol.Record) error) error {
	for _, name := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.decode(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) decode(name string, fn func(string, *protocol.Record) error) error {
	log := r.logger.With().Str("input", name).Logger()

	src, err := r.open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	rc, codec, err := inflate.NewReader(src)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer rc.Close()
	if codec != inflate.CodecNone {
		log.Debug().Stringer("codec", codec).Msg("Decompressing input")
	}

	parser := adapter.NewFITParser(adapter.WithCRCCheck(r.cfg.VerifyCRC))
	s, err := stream.New(rc, parser,
		stream.WithChunkSize(r.cfg.ChunkSize),
		stream.WithObserver(r.metrics),
		stream.WithLogger(log),
	)
	if err != nil {
		return err
	}

	var records, skipped int
	for rec, err := range s.All() {
		if err != nil {
			if r.cfg.SkipUndecodable && !errors.Is(err, stream.ErrSourceRead) {
				log.Warn().Err(err).Msg("Skipping undecodable data")
				skipped++
				continue
			}
			return fmt.Errorf("%s: %w", name, err)
		}
		records++
		if err := fn(name, rec); err != nil {
			return err
		}
	}

	log.Debug().
		Int("records", records).
		Int("skipped", skipped).
		Int64("bytes", s.BytesRead()).
		Msg("Input decoded")
	return fn(name, nil)
}

func (r *Runner) open(name string) (io.ReadCloser, error) {
	if name == Stdin {
		return io.NopCloser(r.stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Close writes the metrics file, if one is configured.
func (r *Runner) Close() error {
	if r.cfg.MetricsFile == "" {
		return nil
	}
	return r.metrics.WriteTextfile(r.cfg.MetricsFile)
}
