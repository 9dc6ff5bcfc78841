// Package config loads the synapse.yaml file of the command line tool.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/synapse/compiler/gen"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "synapse.yaml"

// envPrefix starts every environment override.
const envPrefix = "SYNAPSE_"

// Config represents the top-level YAML configuration.
type Config struct {
	// Inputs are schema set files, json, yaml or msgpack by extension.
	Inputs      []string `yaml:"inputs"`
	Output      string   `yaml:"output"`
	Package     string   `yaml:"package"`
	PageSize    int      `yaml:"page_size"`
	MaxPageSize int      `yaml:"max_page_size"`
	LogLevel    string   `yaml:"log_level"`
	Workers     int      `yaml:"workers"`
	GraphQL     GraphQL  `yaml:"graphql"`
}

// GraphQL configures the sdl command.
type GraphQL struct {
	// Schema is the file the SDL is written to.
	Schema string `yaml:"schema"`
	// GQLGen is the gqlgen.yml to bind the schema scalars in, if set.
	GQLGen string `yaml:"gqlgen"`
	// ModelPackage is autobound in the gqlgen config.
	ModelPackage string `yaml:"model_package"`
}

// Load reads and parses a YAML config file, then applies the environment
// overrides. A missing file at DefaultPath is an empty config; any other
// missing file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.defaults()
	return &cfg, nil
}

// applyEnv replaces config values by the SYNAPSE_ variables that are set.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
		}
		*dst = n
		return nil
	}
	if v, ok := lookup(envPrefix + "INPUTS"); ok {
		c.Inputs = splitList(v)
	}
	str("OUTPUT", &c.Output)
	str("PACKAGE", &c.Package)
	str("LOG_LEVEL", &c.LogLevel)
	str("GRAPHQL_SCHEMA", &c.GraphQL.Schema)
	str("GRAPHQL_GQLGEN", &c.GraphQL.GQLGen)
	return errors.Join(
		num("PAGE_SIZE", &c.PageSize),
		num("MAX_PAGE_SIZE", &c.MaxPageSize),
		num("WORKERS", &c.Workers),
	)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) defaults() {
	if c.Output == "" {
		c.Output = "store"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.GraphQL.Schema == "" {
		c.GraphQL.Schema = "schema.graphql"
	}
}

// Validate checks the fields every command needs.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return fmt.Errorf("at least one input must be specified in config")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	l, err := c.Level()
	if err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// Options returns the compiler options of the config. Zero values keep the
// compiler defaults.
func (c *Config) Options(log *slog.Logger) []gen.Option {
	opts := []gen.Option{gen.WithLogger(log)}
	if c.Package != "" {
		opts = append(opts, gen.WithPackage(c.Package))
	}
	if c.PageSize != 0 {
		opts = append(opts, gen.WithDefaultPageSize(c.PageSize))
	}
	if c.MaxPageSize != 0 {
		opts = append(opts, gen.WithMaxPageSize(c.MaxPageSize))
	}
	return opts
}
