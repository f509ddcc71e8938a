package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/output"
	"github.com/vegasq/shardstat/reader"
	"github.com/vegasq/shardstat/table"
)

// SchemaCommand prints the columns of one shard.
type SchemaCommand struct {
	cmdIO

	Path   string
	Output string
}

func newSchemaCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	sc := &SchemaCommand{
		cmdIO:  cmdIO{Stdin: stdin, Stdout: stdout, Stderr: stderr},
		Output: "table",
	}
	schemaCmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "Print the columns of a shard.",
		Long: `schema prints the name, kind and storage type of every column of a CSV or
parquet file. A glob pattern shows the schema of the first match.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc.Path = args[0]
			return sc.Run(cmd.Context())
		},
	}
	schemaCmd.Flags().StringVarP(&sc.Output, "output", "o", sc.Output, "Output format: "+strings.Join(output.Names, ", ")+".")
	return schemaCmd
}

// Run inspects the file.
func (sc *SchemaCommand) Run(_ context.Context) error {
	path := sc.Path
	if strings.ContainsAny(path, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return errors.Newf(errors.ErrInvalidConfig, "invalid glob pattern %q: %v", path, err)
		}
		if len(matches) == 0 {
			return errors.Newf(errors.ErrNotFound, "no files match pattern: %s", path)
		}
		path = matches[0]
		if len(matches) > 1 {
			fmt.Fprintf(sc.Stderr, "# Showing schema from: %s (%d files matched)\n", path, len(matches))
		}
	}

	format, err := reader.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}
	infos, err := reader.Inspect(path, format)
	if err != nil {
		return err
	}
	out, err := output.New(sc.Output, sc.Stdout)
	if err != nil {
		return err
	}
	return out.Format(schemaTable(infos))
}

func schemaTable(infos []reader.ColumnInfo) *table.Table {
	n := len(infos)
	names := make([]string, n)
	kinds := make([]string, n)
	physical := make([]string, n)
	logical := make([]string, n)
	nullable := make([]string, n)
	for i, c := range infos {
		names[i] = c.Name
		kinds[i] = c.Kind
		physical[i] = c.PhysicalType
		logical[i] = c.LogicalType
		nullable[i] = strconv.FormatBool(c.Nullable)
	}
	return table.MustNewTable(
		table.NewStringColumn("name", names),
		table.NewStringColumn("kind", kinds),
		table.NewStringColumn("physical_type", physical),
		table.NewStringColumn("logical_type", logical),
		table.NewStringColumn("nullable", nullable),
	)
}
