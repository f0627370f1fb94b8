package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"openfms/fitstream/internal/cli"
	"openfms/fitstream/internal/devices"
	"openfms/fitstream/internal/logger"
	"openfms/fitstream/internal/output"
	"openfms/fitstream/internal/protocol"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "fitdevices: %v\n", err)
		os.Exit(1)
	}
}

// run resolves the devices of every input and writes one result per input.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, inputs, err := cli.NewFlags("fitdevices", false).Parse(args)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	log := logger.WithComponent("fitdevices")
	log.Debug().Int("chunk_size", cfg.ChunkSize).Str("format", cfg.OutputFormat).Msg("Configuration loaded")

	format, err := output.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return err
	}
	enc, err := output.NewEncoder(stdout, format)
	if err != nil {
		return err
	}
	runner := cli.NewRunner(cfg, cli.WithLogger(log), cli.WithStdin(stdin))

	resolver := devices.NewResolver(devices.WithLogger(log))
	err = runner.Each(ctx, cli.Inputs(inputs), func(name string, rec *protocol.Record) error {
		if rec != nil {
			resolver.Add(rec)
			return nil
		}

		res := resolver.Result()
		runner.Metrics().ObserveDevices(res)
		log.Info().
			Str("input", name).
			Int("devices", len(res.Devices)).
			Int("dropped", res.Dropped).
			Msg("Devices resolved")
		resolver = devices.NewResolver(devices.WithLogger(log))
		return enc.Encode(res)
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
