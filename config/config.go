// Package config holds the settings of a shardstat run. Values come from,
// in increasing priority, the defaults below, a TOML file, SHARDSTAT_*
// environment variables and command line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/spf13/pflag"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/output"
	"github.com/vegasq/shardstat/query"
	"github.com/vegasq/shardstat/reader"
)

// Config is the configuration of a pipeline run.
type Config struct {
	// DataDir is the directory holding the shards and the key table. There
	// is no default.
	DataDir string `toml:"data-dir"`

	Format string `toml:"format"`
	Mode   string `toml:"mode"`

	// FactPattern and KeyPattern are glob patterns, without extension,
	// matched against file names in DataDir.
	FactPattern string `toml:"fact-pattern"`
	KeyPattern  string `toml:"key-pattern"`

	GroupColumn  string   `toml:"group-column"`
	JoinLeft     string   `toml:"join-left"`
	JoinRight    string   `toml:"join-right"`
	ValueColumns []string `toml:"value-columns"`

	Concurrency int    `toml:"concurrency"`
	Output      string `toml:"output"`
	Verbose     bool   `toml:"verbose"`
}

// Default returns the configuration of the reference benchmark, minus the
// data directory.
func Default() *Config {
	return &Config{
		Format:       string(reader.Parquet),
		Mode:         string(query.Eager),
		FactPattern:  "table_*",
		KeyPattern:   "*table",
		GroupColumn:  "A",
		JoinLeft:     "A",
		JoinRight:    "key",
		ValueColumns: []string{"A", "I", "P"},
		Concurrency:  reader.DefaultConcurrency,
		Output:       "table",
	}
}

// Flags registers one flag per field on fs, bound to c. Flag names match
// the TOML keys.
func (c *Config) Flags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.DataDir, "data-dir", "d", c.DataDir, "Directory holding the shards and the key table.")
	fs.StringVarP(&c.Format, "format", "f", c.Format, "Storage format: csv or parquet.")
	fs.StringVarP(&c.Mode, "mode", "m", c.Mode, "Evaluation mode: eager or lazy.")
	fs.StringVar(&c.FactPattern, "fact-pattern", c.FactPattern, "Glob, without extension, selecting the fact shards.")
	fs.StringVar(&c.KeyPattern, "key-pattern", c.KeyPattern, "Glob, without extension, selecting key table candidates.")
	fs.StringVar(&c.GroupColumn, "group-column", c.GroupColumn, "Column to group by.")
	fs.StringVar(&c.JoinLeft, "join-left", c.JoinLeft, "Fact column to join on.")
	fs.StringVar(&c.JoinRight, "join-right", c.JoinRight, "Key table column to join on.")
	fs.StringSliceVar(&c.ValueColumns, "value-columns", c.ValueColumns, "Comma separated fact columns to read.")
	fs.IntVar(&c.Concurrency, "concurrency", c.Concurrency, "Maximum number of shards decoded at once.")
	fs.StringVarP(&c.Output, "output", "o", c.Output, "Output format: "+strings.Join(output.Names, ", ")+".")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "Enable debug logging.")
}

// Validate checks c and returns an ErrInvalidConfig error naming the first
// bad setting.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New(errors.ErrInvalidConfig, "data-dir is required")
	}
	if st, err := os.Stat(c.DataDir); err != nil {
		return errors.Newf(errors.ErrInvalidConfig, "data-dir %s: %v", c.DataDir, err)
	} else if !st.IsDir() {
		return errors.Newf(errors.ErrInvalidConfig, "data-dir %s is not a directory", c.DataDir)
	}
	if _, err := reader.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := query.ParseMode(c.Mode); err != nil {
		return err
	}
	switch {
	case c.FactPattern == "":
		return errors.New(errors.ErrInvalidConfig, "fact-pattern is required")
	case c.KeyPattern == "":
		return errors.New(errors.ErrInvalidConfig, "key-pattern is required")
	case c.GroupColumn == "":
		return errors.New(errors.ErrInvalidConfig, "group-column is required")
	case c.JoinLeft == "" || c.JoinRight == "":
		return errors.New(errors.ErrInvalidConfig, "join-left and join-right are required")
	case c.Concurrency < 1:
		return errors.Newf(errors.ErrInvalidConfig, "concurrency must be at least 1, got %d", c.Concurrency)
	}
	if _, err := filepath.Match(c.FactPattern, ""); err != nil {
		return errors.Newf(errors.ErrInvalidConfig, "bad fact-pattern %q: %v", c.FactPattern, err)
	}
	if _, err := filepath.Match(c.KeyPattern, ""); err != nil {
		return errors.Newf(errors.ErrInvalidConfig, "bad key-pattern %q: %v", c.KeyPattern, err)
	}
	for _, name := range output.Names {
		if name == c.Output {
			return nil
		}
	}
	return errors.Newf(errors.ErrInvalidConfig, "unknown output %q (want one of %s)", c.Output, strings.Join(output.Names, ", "))
}

// Request resolves the shard and key table paths in DataDir and returns
// the pipeline request. c must be valid.
func (c *Config) Request() (query.Request, error) {
	format, err := reader.ParseFormat(c.Format)
	if err != nil {
		return query.Request{}, err
	}
	mode, err := query.ParseMode(c.Mode)
	if err != nil {
		return query.Request{}, err
	}
	facts, err := reader.Glob(c.DataDir, c.FactPattern, format)
	if err != nil {
		return query.Request{}, err
	}
	keys, err := reader.Glob(c.DataDir, c.KeyPattern, format)
	if err != nil {
		return query.Request{}, err
	}
	return query.Request{
		FactPaths:    facts,
		KeyPaths:     keys,
		GroupColumn:  c.GroupColumn,
		JoinLeft:     c.JoinLeft,
		JoinRight:    c.JoinRight,
		ValueColumns: append([]string(nil), c.ValueColumns...),
		Mode:         mode,
	}, nil
}

// Marshal renders c as TOML.
func (c *Config) Marshal() ([]byte, error) {
	b, err := toml.Marshal(*c)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling config")
	}
	return b, nil
}
