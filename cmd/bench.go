package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vegasq/shardstat/bench"
	"github.com/vegasq/shardstat/config"
	"github.com/vegasq/shardstat/metrics"
	"github.com/vegasq/shardstat/output"
	"github.com/vegasq/shardstat/query"
	"github.com/vegasq/shardstat/reader"
)

// BenchCommand times every format and mode combination.
type BenchCommand struct {
	cmdIO

	Config *config.Config

	Formats []string
	Modes   []string
	Repeat  int

	// ResultsDir receives min_times.csv, and the chart if Plot is set.
	ResultsDir string
	Plot       string
	Metrics    bool
}

func newBenchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	bc := &BenchCommand{
		cmdIO:   cmdIO{Stdin: stdin, Stdout: stdout, Stderr: stderr},
		Config:  config.Default(),
		Formats: []string{string(reader.CSV), string(reader.Parquet)},
		Modes:   []string{string(query.Eager), string(query.Lazy)},
		Repeat:  5,
	}
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the pipeline over every storage format and evaluation mode.",
		Long: `bench runs the pipeline --repeat times for each combination of --formats and
--modes, prints the minimum and mean wall time of each, and warns if any
combination produces a different summary.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bc.Run(cmd.Context())
		},
	}
	flags := benchCmd.Flags()
	bc.Config.Flags(flags)
	flags.StringSliceVar(&bc.Formats, "formats", bc.Formats, "Comma separated formats to time.")
	flags.StringSliceVar(&bc.Modes, "modes", bc.Modes, "Comma separated modes to time.")
	flags.IntVarP(&bc.Repeat, "repeat", "n", bc.Repeat, "Runs per combination.")
	flags.StringVar(&bc.ResultsDir, "results-dir", "", "Directory to write "+bench.MinTimesFile+" to.")
	flags.StringVar(&bc.Plot, "plot", "", "File name of a bar chart of minimum times, written to --results-dir.")
	flags.BoolVar(&bc.Metrics, "metrics", false, "Print collected metrics in the prometheus text format.")
	return benchCmd
}

// Run benchmarks and reports.
func (bc *BenchCommand) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var formats []reader.Format
	for _, s := range bc.Formats {
		f, err := reader.ParseFormat(s)
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}
	var modes []query.Mode
	for _, s := range bc.Modes {
		m, err := query.ParseMode(s)
		if err != nil {
			return err
		}
		modes = append(modes, m)
	}
	out, err := output.New(bc.Config.Output, bc.Stdout)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if bc.Metrics {
		m = metrics.New()
	}
	log := bc.logger(bc.Config.Verbose)
	rep, err := bench.Run(ctx, bench.Options{
		Config:   *bc.Config,
		Variants: bench.Variants(formats, modes),
		Repeat:   bc.Repeat,
		Logger:   log,
		Metrics:  m,
	})
	if err != nil {
		return err
	}
	if err := out.Format(rep.Table()); err != nil {
		return err
	}
	if len(rep.Mismatches) > 0 {
		fmt.Fprintf(bc.Stderr, "summaries differ for: %v\n", rep.Mismatches)
	}

	if bc.ResultsDir != "" {
		if err := os.MkdirAll(bc.ResultsDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", bc.ResultsDir, err)
		}
		path := filepath.Join(bc.ResultsDir, bench.MinTimesFile)
		if err := rep.WriteCSV(path); err != nil {
			return err
		}
		log.Infof("wrote %s", path)
		if bc.Plot != "" {
			path := filepath.Join(bc.ResultsDir, bc.Plot)
			if err := rep.Plot(path); err != nil {
				return err
			}
			log.Infof("wrote %s", path)
		}
	}
	if m != nil {
		fmt.Fprintln(bc.Stdout)
		return m.WriteText(bc.Stdout)
	}
	return nil
}
