package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vegasq/shardstat/generate"
	"github.com/vegasq/shardstat/reader"
)

// GenerateCommand writes a synthetic dataset.
type GenerateCommand struct {
	cmdIO

	Options generate.Options
	Formats []string
	Verbose bool
}

func newGenerateCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	gc := &GenerateCommand{
		cmdIO:   cmdIO{Stdin: stdin, Stdout: stdout, Stderr: stderr},
		Options: generate.DefaultOptions(),
	}
	for _, f := range gc.Options.Formats {
		gc.Formats = append(gc.Formats, string(f))
	}
	genCmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic set of fact shards and a key table.",
		Long: `generate writes --shards fact shards named table_<i> and one key table named
key_table into --data-dir, in every requested format. Output depends only on
the flags, not on --concurrency.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return gc.Run(cmd.Context())
		},
	}
	flags := genCmd.Flags()
	o := &gc.Options
	flags.StringVarP(&o.Dir, "data-dir", "d", o.Dir, "Directory to write the dataset to.")
	flags.IntVar(&o.Shards, "shards", o.Shards, "Number of fact shards.")
	flags.IntVar(&o.Rows, "rows", o.Rows, "Rows per fact shard.")
	flags.IntVar(&o.Columns, "columns", o.Columns, "Columns per fact shard, between 4 and 26.")
	flags.IntVar(&o.Letters, "letters", o.Letters, "Distinct letters in the categorical columns.")
	flags.IntVar(&o.KeyColumns, "key-columns", o.KeyColumns, "Integer columns in the key table.")
	flags.Uint64Var(&o.Seed, "seed", o.Seed, "Random seed.")
	flags.IntVar(&o.Concurrency, "concurrency", o.Concurrency, "Shards built and written at once.")
	flags.StringSliceVarP(&gc.Formats, "format", "f", gc.Formats, "Comma separated formats to write.")
	flags.BoolVarP(&gc.Verbose, "verbose", "v", false, "Enable debug logging.")
	return genCmd
}

// Run generates the dataset and prints what was written.
func (gc *GenerateCommand) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := gc.Options
	opts.Formats = nil
	for _, s := range gc.Formats {
		f, err := reader.ParseFormat(s)
		if err != nil {
			return err
		}
		opts.Formats = append(opts.Formats, f)
	}
	m, err := generate.Generate(ctx, opts, gc.logger(gc.Verbose))
	if err != nil {
		return err
	}
	for _, f := range opts.Formats {
		fmt.Fprintf(gc.Stdout, "%s: %d shards, key table %s\n", f, len(m.FactPaths[f]), m.KeyPaths[f])
	}
	return nil
}
