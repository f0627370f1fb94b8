package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"openfms/fitstream/internal/cli"
	"openfms/fitstream/internal/geo"
	"openfms/fitstream/internal/logger"
	"openfms/fitstream/internal/output"
	"openfms/fitstream/internal/protocol"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "fitdump: %v\n", err)
		os.Exit(1)
	}
}

// run writes every decoded record of every input.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, inputs, err := cli.NewFlags("fitdump", true).Parse(args)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	log := logger.WithComponent("fitdump")

	format, err := output.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return err
	}
	enc, err := output.NewEncoder(stdout, format)
	if err != nil {
		return err
	}
	runner := cli.NewRunner(cfg, cli.WithLogger(log), cli.WithStdin(stdin))

	var records int
	err = runner.Each(ctx, cli.Inputs(inputs), func(name string, rec *protocol.Record) error {
		if rec == nil {
			log.Info().Str("input", name).Int("records", records).Msg("Input dumped")
			records = 0
			return nil
		}
		records++
		if cfg.WGS84 {
			rec = geo.AnnotateWGS84(rec)
		}
		return enc.Encode(rec)
	})
	if err != nil {
		// metrics are written for failed runs too
		return errors.Join(err, runner.Close())
	}

	if err := enc.Close(); err != nil {
		return errors.Join(err, runner.Close())
	}
	return runner.Close()
}
