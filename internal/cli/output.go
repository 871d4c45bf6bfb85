package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

// Output formats.
const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputTable, OutputJSON, OutputYAML:
		return f, nil
	case "":
		return OutputTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Table is a rendered view of command results.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render writes data in the chosen format. table builds the human-readable
// view and is only called for table output.
func Render(w io.Writer, format OutputFormat, data any, table func() Table) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case OutputYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		return WriteTable(w, table())
	}
}

// WriteTable writes an aligned table with a styled header.
func WriteTable(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if len(t.Headers) > 0 {
		headers := lo.Map(t.Headers, func(h string, _ int) string { return TableHeaderStyle.Render(h) })
		if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
			return fmt.Errorf("failed to write table header: %w", err)
		}
	}
	for _, row := range t.Rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return fmt.Errorf("failed to write table row: %w", err)
		}
	}

	return tw.Flush()
}

// RenderJQ prints every filter result as indented JSON.
func RenderJQ(w io.Writer, filter *Filter, raw []byte) error {
	results, err := filter.Apply(raw)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode jq result: %w", err)
		}
	}
	return nil
}
