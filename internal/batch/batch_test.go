package batch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"list.csv", FormatCSV, false},
		{"LIST.JSON", FormatJSON, false},
		{"a/b.jsonl", FormatJSONL, false},
		{"b.ndjson", FormatJSONL, false},
		{"c.yaml", FormatYAML, false},
		{"c.yml", FormatYAML, false},
		{"d.txt", "", true},
	}

	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownFormat, tt.path)
			continue
		}
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParse(t *testing.T) {
	want := []Record{
		{URL: "https://example.com/a", Title: "First"},
		{URL: "https://example.com/b"},
	}

	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{"csv", FormatCSV, "url,title\nhttps://example.com/a,First\nhttps://example.com/b,\n"},
		{"csv reordered columns", FormatCSV, "Title, URL\nFirst, https://example.com/a\n,https://example.com/b\n"},
		{"csv with BOM and no title column", FormatCSV, "\ufeffurl\nhttps://example.com/a\nhttps://example.com/b\n"},
		{"json", FormatJSON, `[{"url":"https://example.com/a","title":"First"},{"url":"https://example.com/b"}]`},
		{"jsonl", FormatJSONL, "{\"url\":\"https://example.com/a\",\"title\":\"First\"}\n\n{\"url\":\"https://example.com/b\"}\n"},
		{"yaml", FormatYAML, "- url: https://example.com/a\n  title: First\n- url: https://example.com/b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input), tt.format)
			require.NoError(t, err)

			expected := want
			if tt.name == "csv with BOM and no title column" {
				expected = []Record{{URL: "https://example.com/a"}, {URL: "https://example.com/b"}}
			}
			assert.Equal(t, expected, got)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatJSON, FormatJSONL, FormatYAML} {
		got, err := Parse(strings.NewReader(""), format)
		assert.NoError(t, err, format)
		assert.Empty(t, got, format)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		input   string
		message string
	}{
		{"csv without url column", FormatCSV, "link,title\nx,y\n", `no "url" column`},
		{"csv bad quoting", FormatCSV, "url\n\"unterminated\n", ""},
		{"json not an array", FormatJSON, `{"url":"x"}`, "decode json"},
		{"jsonl bad line", FormatJSONL, "{\"url\":\"a\"}\n{oops}\n", "line 2"},
		{"yaml mapping", FormatYAML, "url: x\n", "decode yaml"},
		{"unknown format", Format("xml"), "<a/>", "unknown batch format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParse_BlankURLsPassThrough(t *testing.T) {
	got, err := Parse(strings.NewReader("url,title\n,Orphan title\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []Record{{Title: "Orphan title"}}, got)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yml")
	require.NoError(t, os.WriteFile(path, []byte("- url: https://example.com/x\n"), 0644))

	got, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Record{{URL: "https://example.com/x"}}, got)

	bad := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(bad, []byte("[{"), 0644))
	_, err = ParseFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch.json")
}
