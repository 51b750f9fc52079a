package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Load reads parameters from a .json, .yaml or .yml file.
func Load(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read params %s: %w", path, err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	p, err := Parse(data, format)
	var ce *ConfigError
	if errors.As(err, &ce) && ce.Source == "" {
		ce.Source = path
	}
	return p, err
}

// Parse decodes parameters from JSON or YAML. Missing fields keep their
// defaults; unknown fields and unknown enum names are configuration errors.
func Parse(data []byte, format string) (Params, error) {
	if format == "yaml" {
		js, err := yamlToJSON(data)
		if err != nil {
			return Params{}, &ConfigError{Err: err}
		}
		data = js
	}
	var probe struct {
		Mode *Mode `json:"model_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Params{}, &ConfigError{Field: "model_type", Err: err}
	}
	if probe.Mode == nil {
		return Params{}, &ConfigError{Field: "model_type", Err: errors.New("required")}
	}
	return Overlay(Default(*probe.Mode), data)
}

// Overlay decodes a JSON parameter document over base and validates the
// result. Fields absent from data keep their base values.
func Overlay(base Params, data []byte) (Params, error) {
	p := base
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Params{}, &ConfigError{Err: err}
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// yamlToJSON converts a YAML document to JSON keeping mapping key order, so
// class tables stay in the order they were written.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	if err := writeNodeJSON(&buf, doc.Content[0]); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNodeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.AliasNode:
		return writeNodeJSON(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		seen := map[string]bool{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if seen[key] {
				if _, err := ParseVehicleClass(key); err == nil {
					return fmt.Errorf("%w: %s", ErrDuplicateVehicleClass, key)
				}
				return fmt.Errorf("line %d: duplicate key %q", n.Content[i].Line, key)
			}
			seen[key] = true
			if i > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(key)
			buf.Write(k)
			buf.WriteByte(':')
			if err := writeNodeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNodeJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
