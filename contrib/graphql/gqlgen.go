package graphql

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// CursorModel is the Go type gqlgen binds the Cursor scalar to.
const CursorModel = "github.com/syssam/synapse/contrib/graphql.Cursor"

// GQLGenConfig is the part of a gqlgen.yml the compiler maintains. Keys it
// does not know are not preserved.
type GQLGenConfig struct {
	Schema   StringList              `yaml:"schema,omitempty"`
	Exec     PackageConfig           `yaml:"exec,omitempty"`
	Model    PackageConfig           `yaml:"model,omitempty"`
	Resolver ResolverConfig          `yaml:"resolver,omitempty"`
	Autobind []string                `yaml:"autobind,omitempty"`
	Models   map[string]TypeMapEntry `yaml:"models,omitempty"`
}

// PackageConfig locates one generated gqlgen package.
type PackageConfig struct {
	Filename string `yaml:"filename,omitempty"`
	Package  string `yaml:"package,omitempty"`
}

// ResolverConfig locates the resolver stubs.
type ResolverConfig struct {
	Filename string `yaml:"filename,omitempty"`
	Package  string `yaml:"package,omitempty"`
	Layout   string `yaml:"layout,omitempty"`
	DirName  string `yaml:"dir,omitempty"`
}

// TypeMapEntry binds one schema type.
type TypeMapEntry struct {
	Model  StringList              `yaml:"model,omitempty"`
	Fields map[string]TypeMapField `yaml:"fields,omitempty"`
}

// TypeMapField configures one field of a bound type.
type TypeMapField struct {
	Resolver  bool   `yaml:"resolver,omitempty"`
	FieldName string `yaml:"fieldName,omitempty"`
}

// StringList is a yaml string or list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	return fmt.Errorf("graphql: expected string or list, got yaml kind %v", node.Kind)
}

// MarshalYAML implements yaml.Marshaler.
func (s StringList) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}

// LoadGQLGenConfig reads a gqlgen.yml. A missing file yields an empty
// configuration.
func LoadGQLGenConfig(path string) (*GQLGenConfig, error) {
	cfg := &GQLGenConfig{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("graphql: read gqlgen config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("graphql: parse gqlgen config %s: %w", path, err)
		}
	}
	if cfg.Models == nil {
		cfg.Models = make(map[string]TypeMapEntry)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *GQLGenConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("graphql: marshal gqlgen config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("graphql: create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// SetModel adds a Go model to the binding of a schema type.
func (c *GQLGenConfig) SetModel(typ, model string) {
	entry := c.Models[typ]
	if !slices.Contains(entry.Model, model) {
		entry.Model = append(entry.Model, model)
	}
	c.Models[typ] = entry
}

// Bind registers a rendered schema and binds the scalars it declares. The
// models package of the generated code is autobound so node objects bind by
// name.
func (c *GQLGenConfig) Bind(schemaPath, modelPackage string) {
	if schemaPath != "" && !slices.Contains(c.Schema, schemaPath) {
		c.Schema = append(c.Schema, schemaPath)
	}
	if modelPackage != "" && !slices.Contains(c.Autobind, modelPackage) {
		c.Autobind = append(c.Autobind, modelPackage)
	}
	c.SetModel(CursorScalar, CursorModel)
	c.SetModel(TimeScalar, "github.com/99designs/gqlgen/graphql.Time")
	c.SetModel(JSONScalar, "github.com/99designs/gqlgen/graphql.Map")
}
