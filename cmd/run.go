package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vegasq/shardstat/config"
	"github.com/vegasq/shardstat/metrics"
	"github.com/vegasq/shardstat/output"
	"github.com/vegasq/shardstat/query"
	"github.com/vegasq/shardstat/reader"
)

// RunCommand runs the pipeline once and prints the summary.
type RunCommand struct {
	cmdIO

	Config *config.Config

	// Explain prints the logical and optimized plan instead of running.
	Explain bool
	// Groups also prints the per-group means.
	Groups bool
	// Metrics dumps the run's metrics after the summary.
	Metrics bool
}

func newRunCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &RunCommand{
		cmdIO:  cmdIO{Stdin: stdin, Stdout: stdout, Stderr: stderr},
		Config: config.Default(),
	}
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Join the shards with the key table and print the mean of group means.",
		Long: `run discovers the fact shards and the key table in --data-dir, left-joins
them, groups by --group-column and prints, for every numeric column, the
unweighted mean of the per-group means.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.Run(cmd.Context())
		},
	}
	flags := runCmd.Flags()
	rc.Config.Flags(flags)
	flags.BoolVar(&rc.Explain, "explain", false, "Print the query plan and exit.")
	flags.BoolVar(&rc.Groups, "groups", false, "Also print the per-group means.")
	flags.BoolVar(&rc.Metrics, "metrics", false, "Print collected metrics in the prometheus text format.")
	return runCmd
}

// Run executes the configured request.
func (rc *RunCommand) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := rc.Config.Validate(); err != nil {
		return err
	}
	req, err := rc.Config.Request()
	if err != nil {
		return err
	}
	format, err := reader.ParseFormat(rc.Config.Format)
	if err != nil {
		return err
	}
	dec, err := reader.DecoderFor(format)
	if err != nil {
		return err
	}
	out, err := output.New(rc.Config.Output, rc.Stdout)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if rc.Metrics {
		m = metrics.New()
	}
	p := &query.Pipeline{
		Decoder:     dec,
		Concurrency: rc.Config.Concurrency,
		Logger:      rc.logger(rc.Config.Verbose),
		Metrics:     m,
	}

	if rc.Explain {
		_, err := io.WriteString(rc.Stdout, p.Plan(nil, req).Explain())
		return err
	}

	res, err := p.Run(ctx, req)
	if err != nil {
		return err
	}
	if rc.Groups {
		if err := out.Format(res.Groups); err != nil {
			return err
		}
		fmt.Fprintln(rc.Stdout)
	}
	if err := out.Format(res.Summary.Table()); err != nil {
		return err
	}
	if m != nil {
		fmt.Fprintln(rc.Stdout)
		return m.WriteText(rc.Stdout)
	}
	return nil
}
