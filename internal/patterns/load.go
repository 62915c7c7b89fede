package patterns

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
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/newhook/testnorm/internal/logging"
)

//go:embed schema/patterns.schema.json
var schemaJSON []byte

const schemaURL = "patterns.schema.json"

var (
	fileSchema    *jsonschema.Schema
	patternSchema *jsonschema.Schema
	compileOnce   sync.Once
	compileErr    error
)

func compileSchemas() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal patterns schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add patterns schema resource: %w", err)
			return
		}
		fileSchema, err = compiler.Compile(schemaURL)
		if err != nil {
			compileErr = fmt.Errorf("compile patterns schema: %w", err)
			return
		}
		patternSchema, err = compiler.Compile(schemaURL + "#/$defs/pattern")
		if err != nil {
			compileErr = fmt.Errorf("compile pattern item schema: %w", err)
			return
		}
	})
	return compileErr
}

// LoadFile reads grammar definitions from a YAML, TOML or JSON file.
// The file must hold a top-level "patterns" list. Entries failing schema
// validation are dropped with a warning; the remaining entries are returned
// for registry validation.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}
	return Load(data, formatFromPath(path))
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// Load decodes grammar definitions from data in the given format
// ("yaml", "toml" or "json").
func Load(data []byte, format string) ([]Definition, error) {
	if err := compileSchemas(); err != nil {
		return nil, err
	}

	var raw any
	switch format {
	case "toml":
		var m map[string]any
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
		raw = m
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	}

	// Round-trip through JSON so the validator sees JSON-model values
	// regardless of the source format.
	doc, err := toJSONValue(raw)
	if err != nil {
		return nil, err
	}
	if err := fileSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("pattern file validation failed: %w", err)
	}

	items, _ := doc.(map[string]any)["patterns"].([]any)
	defs := make([]Definition, 0, len(items))
	for i, item := range items {
		if err := patternSchema.Validate(item); err != nil {
			logging.Warn("dropping pattern that fails schema validation", "index", i, "error", err)
			continue
		}
		b, err := json.Marshal(item)
		if err != nil {
			logging.Warn("dropping unencodable pattern", "index", i, "error", err)
			continue
		}
		var def Definition
		if err := json.Unmarshal(b, &def); err != nil {
			logging.Warn("dropping undecodable pattern", "index", i, "error", err)
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize pattern file: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to normalize pattern file: %w", err)
	}
	return doc, nil
}

// LoadFiles loads every file, logging and skipping files that cannot be read
// or validated.
func LoadFiles(paths ...string) []Definition {
	var defs []Definition
	for _, p := range paths {
		d, err := LoadFile(p)
		if err != nil {
			logging.Warn("skipping pattern file", "path", p, "error", err)
			continue
		}
		defs = append(defs, d...)
	}
	return defs
}
