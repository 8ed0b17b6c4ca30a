package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lex00/logexport-aws-go/internal/naming"
)

func TestSynth_JSON(t *testing.T) {
	out, err := execute(t, "synth", "--config", writeConfig(t, testConfig))
	require.NoError(t, err)

	var tmpl map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tmpl))
	assert.Equal(t, "2010-09-09", tmpl["AWSTemplateFormatVersion"])

	resources := tmpl["Resources"].(map[string]any)
	assert.Contains(t, resources, naming.ArchiveBucketID)
	assert.Contains(t, resources, naming.ScheduleID("daily-app-logs"))
	assert.Contains(t, resources, naming.ScheduleID("daily-api-logs"))
}

func TestSynth_YAMLToFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "template.yaml")

	out, err := execute(t, "synth", "--config", writeConfig(t, testConfig), "-f", "yaml", "-o", outFile)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var tmpl map[string]any
	require.NoError(t, yaml.Unmarshal(data, &tmpl))
	assert.Contains(t, tmpl, "Resources")
	assert.Contains(t, tmpl, "Outputs")
}

func TestSynth_Deterministic(t *testing.T) {
	path := writeConfig(t, testConfig)

	first, err := execute(t, "synth", "--config", path)
	require.NoError(t, err)
	second, err := execute(t, "synth", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSynth_ConfigurationError(t *testing.T) {
	path := writeConfig(t, `
function:
  s3Bucket: artifacts
  s3Key: log-exporter.zip
schedules: []
`)
	out, err := execute(t, "synth", "--config", path)
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	assert.Empty(t, out, "nothing is emitted on a configuration error")
}

func TestSynth_InvalidTimezone(t *testing.T) {
	for _, tz := range []string{"Local", "Mars/Olympus_Mons"} {
		path := writeConfig(t, "timezone: "+tz+"\n"+testConfig)
		out, err := execute(t, "synth", "--config", path)
		require.Error(t, err, tz)
		assert.Equal(t, 1, exitCode(err))
		assert.Empty(t, out)
	}
}

func TestSynth_UnknownFormat(t *testing.T) {
	_, err := execute(t, "synth", "--config", writeConfig(t, testConfig), "-f", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestSynth_MissingConfig(t *testing.T) {
	_, err := execute(t, "synth", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
