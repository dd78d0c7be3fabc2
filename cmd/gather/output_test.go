package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cwygoda/gather/internal/domain"
)

var sampleEntries = []domain.Entry{
	{Index: 1, Title: "First", URL: "https://a.example/1"},
	{Index: 2, Title: domain.UntitledPlaceholder, URL: "https://a.example/2"},
}

func TestRenderEntries_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderEntries(&buf, formatTable, sampleEntries))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"#", "TITLE", "URL"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"2", "(untitled)", "https://a.example/2"}, strings.Fields(lines[2]))
}

func TestRenderEntries_Structured(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderEntries(&buf, formatJSON, sampleEntries))
	var fromJSON []domain.Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, sampleEntries, fromJSON)

	buf.Reset()
	require.NoError(t, renderEntries(&buf, formatYAML, sampleEntries))
	var fromYAML []domain.Entry
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, sampleEntries, fromYAML)
}

func TestRenderEntries_EmptyJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderEntries(&buf, formatJSON, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestRenderFailures_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderFailures(&buf, formatTable, nil))
	assert.Equal(t, "no failures", strings.TrimSpace(buf.String()))

	buf.Reset()
	failures := []domain.Failure{{
		URL:        "https://a.example/1",
		Task:       domain.TaskDownload,
		Diagnostic: "ERROR: unavailable\nsecond line",
	}}
	require.NoError(t, renderFailures(&buf, formatTable, failures))
	assert.Contains(t, buf.String(), "ERROR: unavailable ...")
	assert.NotContains(t, buf.String(), "second line")
}

func TestValidateOutputFormat(t *testing.T) {
	for _, f := range []string{"table", "json", "yaml"} {
		assert.NoError(t, validateOutputFormat(f), f)
	}
	assert.Error(t, validateOutputFormat("xml"))
}
