package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/vegasq/shardstat/config"
)

func newGenerateConfigCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-config",
		Short: "Print the default configuration.",
		Long: `generate-config prints the default configuration to stdout in TOML, ready to
be edited and passed back with --config.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := config.Default().Marshal()
			if err != nil {
				return err
			}
			_, err = stdout.Write(b)
			return err
		},
	}
}
