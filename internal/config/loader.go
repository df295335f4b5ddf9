package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"

	"stevedore/pkg/logging"
)

// Format is the encoding of a configuration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatForPath picks the document format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported configuration file extension %q (expected .yaml, .yml, .json or .toml)", filepath.Ext(path))
	}
}

// Load reads, decodes and validates the configuration file at path.
func Load(path string) (*Model, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	format, err := FormatForPath(abs)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	doc, err := Decode(data, format)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	model, err := newModel(doc, filepath.Dir(abs), path)
	if err != nil {
		return nil, err
	}

	logging.Debug("ConfigLoader", "Loaded %d services and %d networks from %s", len(model.services), len(model.networks), abs)
	return model, nil
}

// Parse decodes and validates an in-memory document. Relative descriptor
// paths are resolved against baseDir.
func Parse(data []byte, format Format, baseDir string) (*Model, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, &LoadError{Path: "<" + string(format) + ">", Err: err}
	}
	return newModel(doc, baseDir, "")
}

// Decode turns raw bytes into a Document. Unknown keys are rejected in every
// format.
func Decode(data []byte, format Format) (Document, error) {
	var doc Document

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return doc, nil
			}
			return doc, fmt.Errorf("invalid YAML: %w", err)
		}

	case FormatJSON:
		if err := k8syaml.UnmarshalStrict(data, &doc); err != nil {
			return doc, fmt.Errorf("invalid JSON: %w", err)
		}

	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return doc, fmt.Errorf("invalid TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return doc, fmt.Errorf("unknown TOML keys: %s", strings.Join(keys, ", "))
		}

	default:
		return doc, fmt.Errorf("unsupported configuration format %q", format)
	}

	return doc, nil
}
