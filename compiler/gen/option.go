package gen

import (
	"log/slog"
	"regexp"
)

// Config holds the compiler settings shared by every phase.
type Config struct {
	// Logger receives debug records of naming and resolution decisions.
	Logger *slog.Logger
	// DefaultPageSize is the page size of a connection when "first" is omitted.
	DefaultPageSize int
	// MaxPageSize caps the "first" argument of a connection.
	MaxPageSize int
	// StorageSuffix is appended to a service name to form its storage interface.
	StorageSuffix string
	// ServerSuffix is appended to a service name to form its RPC server type.
	ServerSuffix string
	// Package is the Go package name of rendered code.
	Package string
}

// Option configures the compiler.
type Option func(*Config) error

// NewConfig returns the default configuration with the options applied.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Logger:          slog.New(slog.DiscardHandler),
		DefaultPageSize: 20,
		MaxPageSize:     100,
		StorageSuffix:   "Storage",
		ServerSuffix:    "Server",
		Package:         "store",
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return nil, NewConfigError("DefaultPageSize", c.DefaultPageSize, "default page size exceeds the maximum page size")
	}
	return c, nil
}

// WithLogger sets the logger of the compiler.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithDefaultPageSize sets the page size used when a connection omits "first".
func WithDefaultPageSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("DefaultPageSize", n, "page size must be positive")
		}
		c.DefaultPageSize = n
		return nil
	}
}

// WithMaxPageSize sets the largest accepted "first" argument.
func WithMaxPageSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("MaxPageSize", n, "page size must be positive")
		}
		c.MaxPageSize = n
		return nil
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// WithStorageSuffix sets the suffix of storage interface names.
func WithStorageSuffix(s string) Option {
	return func(c *Config) error {
		if !identRe.MatchString(s) {
			return NewConfigError("StorageSuffix", s, "suffix must be an identifier")
		}
		c.StorageSuffix = s
		return nil
	}
}

// WithServerSuffix sets the suffix of RPC server type names.
func WithServerSuffix(s string) Option {
	return func(c *Config) error {
		if !identRe.MatchString(s) {
			return NewConfigError("ServerSuffix", s, "suffix must be an identifier")
		}
		c.ServerSuffix = s
		return nil
	}
}

// WithPackage sets the Go package name of rendered code.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if !identRe.MatchString(pkg) {
			return NewConfigError("Package", pkg, "package must be an identifier")
		}
		c.Package = pkg
		return nil
	}
}
