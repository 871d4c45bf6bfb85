package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRow struct {
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
}

func sampleTable(rows []sampleRow) func() Table {
	return func() Table {
		t := Table{Headers: []string{"NAME", "STATUS"}}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{r.Name, r.Status})
		}
		return t
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{input: "", want: OutputTable},
		{input: "table", want: OutputTable},
		{input: "JSON", want: OutputJSON},
		{input: "yaml", want: OutputYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender(t *testing.T) {
	rows := []sampleRow{
		{Name: "Bank of America", Status: "linked"},
		{Name: "Chase", Status: "pending_mfa"},
	}

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Render(&out, OutputJSON, rows, sampleTable(rows)))
		assert.JSONEq(t, `[{"name":"Bank of America","status":"linked"},{"name":"Chase","status":"pending_mfa"}]`, out.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Render(&out, OutputYAML, rows, sampleTable(rows)))
		assert.Contains(t, out.String(), "- name: Bank of America")
		assert.Contains(t, out.String(), "status: pending_mfa")
	})

	t.Run("table", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Render(&out, OutputTable, rows, sampleTable(rows)))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 3)
		assert.Contains(t, lines[0], "NAME")
		assert.Contains(t, lines[1], "Bank of America")
		// Columns line up.
		assert.Equal(t, strings.Index(lines[1], "linked"), strings.Index(lines[2], "pending_mfa"))
	})

	t.Run("table builder not called for json", func(t *testing.T) {
		called := false
		require.NoError(t, Render(&bytes.Buffer{}, OutputJSON, rows, func() Table {
			called = true
			return Table{}
		}))
		assert.False(t, called)
	})
}
