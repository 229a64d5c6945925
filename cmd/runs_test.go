//go:build !integration

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/geoenrich/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			Manifest:   "data/sacramento.yaml",
			TargetEPSG: 2226,
			Input:      120,
			Enriched:   118,
			Skipped:    2,
			CreatedAt:  now,
		},
		{
			ID:         "def12345-6789-0000-0000-000000000000",
			Manifest:   "data/placer.yaml",
			TargetEPSG: 32610,
			Input:      40,
			Enriched:   40,
			CreatedAt:  now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "MANIFEST")
	assert.Contains(t, output, "EPSG")
	assert.Contains(t, output, "data/sacramento.yaml")
	assert.Contains(t, output, "2226")
	assert.Contains(t, output, "118")
	assert.Contains(t, output, "data/placer.yaml")
	assert.Contains(t, output, "32610")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestFormatRunsList_LongManifest(t *testing.T) {
	long := "/srv/data/" + strings.Repeat("x", 40) + "/manifest.yaml"
	runs := []store.Run{{ID: "1", Manifest: long, TargetEPSG: 2226}}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.NotContains(t, output, long)
	assert.Contains(t, output, "...")
	assert.Contains(t, output, "manifest.yaml")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}

func TestRunsCommand_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])

	flag := runsListCmd.Flags().Lookup("limit")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "50", flag.DefValue)
	}
	assert.NotNil(t, runsListCmd.Flags().Lookup("epsg"))
}
