package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weiihann/reprun/benchmark"
	"github.com/weiihann/reprun/experiment"
	"github.com/weiihann/reprun/options"
	"github.com/weiihann/reprun/sample"
	"github.com/weiihann/reprun/stream"
)

func (a *app) sampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample [options] [file...]",
		Short: "Sample lines of a text stream",
		Long: `Keep a random subset of input lines, either a fraction of them or a
fixed-size reservoir. The sample is reproducible with --random-seed.`,
		DisableFlagParsing: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return a.sampleCommand(args)
		},
	}
}

func (a *app) sampleCommand(args []string) (err error) {
	p := options.NewParser("reprun sample", options.Config{
		Usage: "%prog [options] [file...]",
		Description: "Sample lines from the given files or stdin. Lines starting " +
			"with a passthrough prefix are copied unsampled.",
		Version: version,
		Output:  a.stderr,
	})

	p.Float64("fraction", "f", 0.1,
		"fraction of lines to keep [%default].")
	p.Int("reservoir", "k", 0,
		"keep exactly this many lines, 0 to sample by fraction [%default].")
	p.Strings("passthrough", "p", []string{"#"},
		"copy lines with this prefix unsampled, comma-separated [%default].").Metavar("PREFIX")

	cfg := a.startConfig()
	cfg.OutputOptions = true

	run, err := experiment.Start(p, append([]string{p.Prog()}, args...), cfg)
	if err != nil {
		return startErr(err)
	}

	defer func() {
		if stopErr := run.Stop(); err == nil {
			err = stopErr
		}
	}()

	vals := run.Options.Values

	in, closeInputs, err := openInputs(run.Options.Stdin, run.Args)
	if err != nil {
		return err
	}
	defer closeInputs()

	sampler := sample.NewSampler(sample.Config{
		Fraction:    vals.Float64("fraction"),
		Reservoir:   vals.Int("reservoir"),
		Passthrough: vals.Strings("passthrough"),
	}, run.Rand)

	summary, err := benchmark.Measure(run.Ledger, "sample", func() (sample.Summary, error) {
		return sampler.Sample(in, run.Options.Stdout)
	})
	if err != nil {
		return fmt.Errorf("sample: %w", err)
	}

	run.Logger.Info("sampling finished",
		slog.Int("lines", summary.Lines),
		slog.Int("passthrough", summary.Passthrough),
		slog.Int("sampled", summary.Sampled),
	)

	if !vals.IsSet("output_filename_pattern") {
		return nil
	}

	return writeStats(run, summary)
}

// openInputs concatenates the named files, or returns stdin when there are
// none.
func openInputs(stdin io.Reader, paths []string) (io.Reader, func(), error) {
	if len(paths) == 0 {
		return stdin, func() {}, nil
	}

	readers := make([]io.Reader, 0, len(paths))
	closers := make([]io.Closer, 0, len(paths))

	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	for _, path := range paths {
		if stream.IsStandard(path) {
			readers = append(readers, stdin)

			continue
		}

		r, err := stream.OpenReader(path)
		if err != nil {
			closeAll()

			return nil, nil, fmt.Errorf("open input: %w", err)
		}

		readers = append(readers, r)
		closers = append(closers, r)
	}

	return io.MultiReader(readers...), closeAll, nil
}

func writeStats(run *experiment.Run, summary sample.Summary) error {
	w, err := run.OpenOutput("stats")
	if err != nil {
		return fmt.Errorf("open stats: %w", err)
	}

	_, err = fmt.Fprintf(w, "lines\t%d\npassthrough\t%d\nsampled\t%d\n",
		summary.Lines, summary.Passthrough, summary.Sampled)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("write stats: %w", err)
	}

	return nil
}
