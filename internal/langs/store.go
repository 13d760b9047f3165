package langs

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed languages.json
var defaultStore []byte

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://vigenere.invalid/langs.schema.json"

// Format is the encoding of a language store.
type Format string

// Supported store formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the store format from a file extension.
// Unknown extensions are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

var (
	defaultOnce sync.Once
	defaultDB   *DB
)

// Default returns the built-in language table.
func Default() *DB {
	defaultOnce.Do(func() {
		db, err := Parse(defaultStore, FormatJSON)
		if err != nil {
			panic(fmt.Sprintf("langs: embedded store: %v", err))
		}
		defaultDB = db
	})
	return defaultDB
}

// Load reads a language store from path. An empty path returns Default().
func Load(path string) (*DB, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language store: %w", err)
	}
	db, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return db, nil
}

// Parse decodes a language store. JSON stores are validated against the
// embedded JSON schema before decoding.
func Parse(data []byte, format Format) (*DB, error) {
	records := make(map[string]record)

	switch format {
	case FormatJSON:
		if err := validateJSON(data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &records); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("langs: unsupported store format %q", format)
	}

	return newDB(records)
}

func validateJSON(data []byte) error {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
