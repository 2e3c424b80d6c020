// Package output writes command results to stdout as JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Default is the default output format. Downstream consumers parse JSON.
const Default = FormatJSON

// ParseFormat validates a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Default, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or yaml)", s)
	}
}

// Write writes data to w in the specified format.
func Write(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		v, err := yamlValue(data)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// yamlValue routes data through its JSON form so YAML output uses the same
// field names and number literals as JSON output.
func yamlValue(data any) (any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal output: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return nil, fmt.Errorf("convert output: %w", err)
	}
	blockStyle(&node)
	return &node, nil
}

// blockStyle drops the flow and quoting styles inherited from JSON. Strings
// stay quoted when the plain form would read back as another type.
func blockStyle(n *yaml.Node) {
	if n.Kind != yaml.ScalarNode || plainString(n.Value) {
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func plainString(v string) bool {
	var probe yaml.Node
	if err := yaml.Unmarshal([]byte(v), &probe); err != nil || len(probe.Content) != 1 {
		return false
	}
	c := probe.Content[0]
	return c.Kind == yaml.ScalarNode && c.Style == 0 && c.ShortTag() == "!!str" && c.Value == v
}
