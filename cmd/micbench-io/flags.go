package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/ojaai/micbench"
	"github.com/ojaai/micbench/internal/config"
	"github.com/ojaai/micbench/internal/logging"
)

var errPatternConflict = errors.New("-r and -S select different access patterns")

// parseArgs reads the command line. Options come from the -config file when one is
// given and flags set explicitly on the command line override it.
func parseArgs(args []string, output io.Writer) (config.Options, logging.Config, error) {
	def := config.Default()
	fs := flag.NewFlagSet("micbench-io", flag.ContinueOnError)
	fs.SetOutput(output)
	configPath := fs.String("config", "", "YAML option file; flags given on the command line override it")
	multi := fs.Int("m", def.Multi, "Multiplicity of IO")
	timeout := fs.Int("t", int(def.Timeout.Seconds()), "Running time of IO stress test (in sec)")
	random := fs.Bool("r", false, "Random IO access (default: sequential access)")
	stride := fs.Int64("S", 0, "Strided IO access, distance in blocks")
	write := fs.Bool("w", false, "Write operation (default: read operation)")
	rwmix := fs.Float64("M", 0, "Probability of a write in mixed read/write access")
	direct := fs.Bool("d", false, "Use O_DIRECT. Block size must be multiples of block size of devices")
	blockSize := fs.String("b", def.BlockSize, "Size of block for each IO (in bytes, k/m/g suffixes)")
	offsetStart := fs.Int64("s", 0, "Offset (in blocks) to start with")
	offsetEnd := fs.Int64("e", 0, "Offset (in blocks) to end with (default: the size of device)")
	misalign := fs.Int64("a", 0, "Misalignment from current position (in bytes)")
	affinity := fs.String("A", "", "Thread affinity assignment. <thread id>[-<thread id>]:<core id>[:<mem node id>][,...]")
	engine := fs.String("E", def.Engine.String(), "AIO engine: aio or io_uring")
	nrEvents := fs.Int("N", def.NrEvents, "AIO nr_events per thread")
	fixedBuffers := fs.Bool("F", false, "Register block buffers with io_uring")
	fixedFiles := fs.Bool("R", false, "Register file descriptors with io_uring")
	completionLog := fs.String("L", "", "Write a completion log (one line per IO) to this file")
	jsonOut := fs.Bool("json", false, "Print the configuration and result as JSON")
	noop := fs.Bool("n", false, "Dry-run: print the configuration and exit")
	verbose := fs.Bool("v", false, "Verbose")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Also write diagnostics to this rotated file")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: micbench-io [options] device_or_file...\n")
		fs.PrintDefaults()
	}

	lcfg := logging.DefaultConfig()
	if err := fs.Parse(args); err != nil {
		return def, lcfg, err
	}
	lcfg.Level = *logLevel
	lcfg.FilePath = *logFile

	opts := def
	if *configPath != "" {
		var err error
		if opts, err = config.Load(*configPath); err != nil {
			return opts, lcfg, err
		}
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["r"] && *random && set["S"] {
		return opts, lcfg, errPatternConflict
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "m":
			opts.Multi = *multi
		case "t":
			opts.Timeout = time.Duration(*timeout) * time.Second
		case "r":
			if *random {
				opts.Pattern = config.PatternRand
			} else if opts.Pattern == config.PatternRand {
				opts.Pattern = config.PatternSeq
			}
		case "S":
			opts.Pattern, opts.Stride = config.PatternStride, *stride
		case "w":
			opts.Write = *write
		case "M":
			opts.RWMix = *rwmix
		case "d":
			opts.Direct = *direct
		case "b":
			opts.BlockSize = *blockSize
		case "s":
			opts.OffsetStart = *offsetStart
		case "e":
			opts.OffsetEnd = *offsetEnd
		case "a":
			opts.Misalign = *misalign
		case "A":
			opts.Affinity = *affinity
		case "E":
			opts.Engine, err = micbench.ParseEngine(*engine)
		case "N":
			opts.NrEvents = *nrEvents
		case "F":
			opts.FixedBuffers = *fixedBuffers
		case "R":
			opts.FixedFiles = *fixedFiles
		case "L":
			opts.CompletionLog = *completionLog
		case "json":
			opts.JSON = *jsonOut
		case "v":
			opts.Verbose = *verbose
		}
	})
	if err != nil {
		return opts, lcfg, err
	}
	if fs.NArg() > 0 {
		opts.Paths = fs.Args()
	}
	opts.Noop = *noop
	return opts, lcfg, nil
}
