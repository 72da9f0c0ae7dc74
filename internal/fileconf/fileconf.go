// Package fileconf decodes the YAML/JSON registry files (targets,
// publishers) and holds the sanitizers they share.
package fileconf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type decoder struct {
	name string
	fn   func([]byte, any) error
}

var decoders = map[string]decoder{
	".yaml": {name: "yaml", fn: yaml.Unmarshal},
	".yml":  {name: "yaml", fn: yaml.Unmarshal},
	".json": {name: "json", fn: json.Unmarshal},
}

// Load reads path and decodes it into out. what names the file in errors
// ("targets", "publishers").
func Load(path, what string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%s file path is empty", what)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", what, err)
	}
	return Decode(raw, filepath.Ext(path), what, out)
}

// Decode picks the decoder from ext. Without an extension YAML is tried
// first, then JSON.
func Decode(data []byte, ext, what string, out any) error {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		if err := yaml.Unmarshal(data, out); err == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err == nil {
			return nil
		}
		return fmt.Errorf("%s file format not recognized (expected YAML or JSON)", what)
	}

	d, ok := decoders[ext]
	if !ok {
		return fmt.Errorf("%s file extension %q not supported (expected .yaml, .yml or .json)", what, ext)
	}
	if err := d.fn(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", d.name, what, err)
	}
	return nil
}

// Headers trims names and values and drops empty pairs. It returns nil
// when nothing is left.
func Headers(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Trim trims every pointed-to string in place.
func Trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
