package gen

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := NewConfig()
		require.NoError(t, err)
		assert.NotNil(t, c.Logger)
		assert.Equal(t, 20, c.DefaultPageSize)
		assert.Equal(t, 100, c.MaxPageSize)
		assert.Equal(t, "Storage", c.StorageSuffix)
		assert.Equal(t, "Server", c.ServerSuffix)
		assert.Equal(t, "store", c.Package)
	})

	t.Run("default above maximum", func(t *testing.T) {
		_, err := NewConfig(WithDefaultPageSize(50), WithMaxPageSize(10))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingConfig))
	})

	t.Run("first failing option wins", func(t *testing.T) {
		_, err := NewConfig(WithPackage("not-a-package"), WithMaxPageSize(0))
		var ce *ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "Package", ce.Option)
	})
}

func TestWithLogger(t *testing.T) {
	c := &Config{}
	require.Error(t, WithLogger(nil)(c))

	l := slog.New(slog.DiscardHandler)
	require.NoError(t, WithLogger(l)(c))
	assert.Same(t, l, c.Logger)
}

func TestPageSizeOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr bool
	}{
		{"default positive", WithDefaultPageSize(10), false},
		{"default zero", WithDefaultPageSize(0), true},
		{"max positive", WithMaxPageSize(500), false},
		{"max negative", WithMaxPageSize(-5), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opt(&Config{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNameOptions(t *testing.T) {
	c, err := NewConfig(WithStorageSuffix("Repo"), WithServerSuffix("Handler"), WithPackage("blogstore"))
	require.NoError(t, err)
	assert.Equal(t, "Repo", c.StorageSuffix)
	assert.Equal(t, "Handler", c.ServerSuffix)
	assert.Equal(t, "blogstore", c.Package)

	for _, opt := range []Option{WithStorageSuffix(""), WithServerSuffix("9x"), WithPackage("a.b")} {
		assert.Error(t, opt(&Config{}))
	}
}
