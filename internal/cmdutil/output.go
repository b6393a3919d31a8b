// Package cmdutil holds helpers shared by the CLI subcommands.
package cmdutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how a command prints its result.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: text, json, yaml)", s)
	}
}

// Write prints v in the requested format. Text output is delegated to text.
func Write(w io.Writer, format Format, v any, text func(io.Writer) error) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return text(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Hours formats an optional duration in hours for text output.
func Hours(h *float64) string {
	if h == nil {
		return "-"
	}
	if *h == float64(int64(*h)) {
		return fmt.Sprintf("%d h", int64(*h))
	}
	return fmt.Sprintf("%.1f h", *h)
}
