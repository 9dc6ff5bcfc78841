package load

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a schema set on disk.
type Format string

// Supported formats.
const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("load: unknown schema format for %q", path)
	}
}

// Decode reads a schema set in the given format and checks its structure.
func Decode(r io.Reader, format Format) (*FileSet, error) {
	var (
		fs  FileSet
		err error
	)
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&fs)
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&fs)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(&fs)
	default:
		return nil, fmt.Errorf("load: unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("load: decoding %s schema set: %w", format, err)
	}
	if err := fs.Check(); err != nil {
		return nil, err
	}
	return &fs, nil
}

// Encode writes the schema set in the given format.
func Encode(w io.Writer, fs *FileSet, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(fs)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(fs)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(fs)
	default:
		return fmt.Errorf("load: unsupported format %q", format)
	}
}

// ReadFile decodes a schema set from disk, picking the format by extension.
func ReadFile(path string) (*FileSet, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: reading %s: %w", path, err)
	}
	return Decode(bytes.NewReader(data), format)
}

// ReadFiles decodes and merges several schema sets into one.
func ReadFiles(paths ...string) (*FileSet, error) {
	merged := &FileSet{}
	for _, p := range paths {
		fs, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		merged.Files = append(merged.Files, fs.Files...)
	}
	if err := merged.Check(); err != nil {
		return nil, err
	}
	return merged, nil
}
