// Package cmd builds the shardstat command line.
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vegasq/shardstat/logger"
)

// EnvPrefix prefixes the environment variable of every flag: --data-dir is
// also read from SHARDSTAT_DATA_DIR.
const EnvPrefix = "SHARDSTAT"

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "shardstat",
		Short: "shardstat joins sharded fact tables with a key table and summarizes group means.",
		Long: `shardstat loads a directory of fact shards (CSV or parquet), stacks them,
left-joins them with a key table, computes the mean of every numeric column
per group and reduces those to one mean of group means per column.

It can also generate a synthetic dataset and time every storage format and
evaluation mode against it.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			return setAllConfig(v, cmd.Flags(), EnvPrefix)
		},
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")

	rc.AddCommand(newRunCommand(stdin, stdout, stderr))
	rc.AddCommand(newBenchCommand(stdin, stdout, stderr))
	rc.AddCommand(newGenerateCommand(stdin, stdout, stderr))
	rc.AddCommand(newSchemaCommand(stdin, stdout, stderr))
	rc.AddCommand(newGenerateConfigCommand(stdin, stdout, stderr))

	rc.SetOutput(stderr)
	return rc
}

// setAllConfig takes a FlagSet to be the definition of all configuration
// options, as well as their defaults. It then reads from the command line,
// the environment, and a config file (if specified), and applies the
// configuration in that priority order. Each flag holds a pointer to where
// its value is stored, so setting the flag sets the config field.
//
// Environment variables are the capitalized flag names with dashes replaced
// by underscores, prefixed with envPrefix plus an underscore.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		// flags set on the command line win
		if flagErr != nil || f.Changed {
			return
		}
		var value string
		if f.Value.Type() == "stringSlice" {
			// GetString is empty for a list from the config file
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		} else {
			value = v.GetString(f.Name)
		}
		flagErr = f.Value.Set(value)
	})
	return flagErr
}

// cmdIO carries the streams of a command.
type cmdIO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (c cmdIO) logger(verbose bool) logger.Logger {
	if verbose {
		return logger.NewVerboseLogger(c.Stderr)
	}
	return logger.NewStandardLogger(c.Stderr)
}
