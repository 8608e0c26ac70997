// Command micbench-io stresses a device or file with asynchronous reads and writes and
// reports IOPS, response time and transfer rate.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ojaai/micbench"
	"github.com/ojaai/micbench/internal/bench"
	"github.com/ojaai/micbench/internal/logging"
)

func main() {
	opts, lcfg, perr := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(perr, flag.ErrHelp) {
		return
	}
	if _, err := logging.Setup(lcfg); err != nil {
		log.Fatal().Err(err).Msg("logger setup")
	}
	if perr != nil {
		log.Fatal().Err(perr).Msg("parse options")
	}

	if err := opts.Resolve(micbench.SizeOf); err != nil {
		log.Fatal().Err(err).Msg("invalid options")
	}
	if opts.Noop {
		var err error
		if opts.JSON {
			err = bench.WriteJSON(os.Stdout, &opts, nil)
		} else {
			err = bench.PrintOptions(os.Stdout, &opts)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("print options")
		}
		return
	}
	if opts.Verbose && !opts.JSON {
		_ = bench.PrintOptions(os.Stderr, &opts)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := bench.Run(ctx, opts, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("benchmark failed")
	}
	if opts.JSON {
		err = bench.WriteJSON(os.Stdout, &opts, &res)
	} else {
		err = res.Print(os.Stdout)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("print result")
	}
}
