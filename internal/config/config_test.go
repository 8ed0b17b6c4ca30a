package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/logexport-aws-go/archive"
)

const sampleConfig = `
stackName: log-export
id: LogExport
hour: 13
timezone: UTC
retentionDays: 365
function:
  s3Bucket: artifacts
  s3Key: log-exporter.zip
  memorySize: 256
tags:
  team: platform
schedules:
  - name: daily-app-logs
    description: d
    target:
      logGroupName: /app/prod
      destinationPrefix: app/
  - name: daily-api-logs
    target:
      logGroupName: /api/prod
      destinationPrefix: api/
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "log-export", cfg.StackName)
	assert.Equal(t, "LogExport", cfg.ID)
	require.NotNil(t, cfg.Hour)
	assert.Equal(t, 13, *cfg.Hour)
	assert.Equal(t, 365, cfg.RetentionDays)
	assert.Equal(t, "artifacts", cfg.Function.S3Bucket)
	assert.Equal(t, 256, cfg.Function.MemorySize)
	assert.Equal(t, map[string]string{"team": "platform"}, cfg.Tags)
	require.Len(t, cfg.Schedules, 2)
	assert.Equal(t, "daily-app-logs", cfg.Schedules[0].Name)
	assert.Equal(t, "/api/prod", cfg.Schedules[1].Target.LogGroupName)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "schedules: []\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultStackName, cfg.StackName)
	assert.Equal(t, DefaultID, cfg.ID)
	assert.Nil(t, cfg.Hour)
	assert.Equal(t, "log-export/LogExport", cfg.Identity())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Schedules)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("stackName: x\nschedule: []\n"))
	assert.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("schedules: [\n"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvStackName:    "prod-logs",
		EnvTargetBucket: "existing-bucket",
		EnvHour:         " 4 ",
	}
	cfg := &Config{StackName: "log-export"}
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, "prod-logs", cfg.StackName)
	assert.Equal(t, "existing-bucket", cfg.TargetBucket)
	require.NotNil(t, cfg.Hour)
	assert.Equal(t, 4, *cfg.Hour)
}

func TestApplyEnv_BadHour(t *testing.T) {
	cfg := &Config{}
	err := cfg.ApplyEnv(func(k string) string {
		if k == EnvHour {
			return "noon"
		}
		return ""
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvHour)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv(EnvTargetBucket, "from-env-bucket")
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env-bucket", cfg.TargetBucket)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOGEXPORT_TEST_VALUE=from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("LOGEXPORT_TEST_VALUE") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv("LOGEXPORT_TEST_VALUE"))

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}

func TestConfig_Props(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	props := cfg.Props()
	require.Len(t, props.Schedules, 2)
	assert.Equal(t, archive.ExportJob{
		Name:              "daily-app-logs",
		Description:       "d",
		LogGroupName:      "/app/prod",
		DestinationPrefix: "app/",
	}, props.Schedules[0])
	assert.Equal(t, "artifacts", props.Function.S3Bucket)
	assert.Equal(t, "log-exporter.zip", props.Function.S3Key)
	assert.Equal(t, 365, props.RetentionDays)
	assert.Empty(t, props.TargetBucket)
}

func TestConfig_Build(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	la, err := cfg.Build()
	require.NoError(t, err)
	assert.Len(t, la.Schedules, 2)
	assert.Equal(t, 1, la.Schedules[1].MinuteOffset)
}

func TestConfig_Build_NoJobs(t *testing.T) {
	cfg, err := Load(writeConfig(t, "function: {s3Bucket: a, s3Key: b}\nschedules: []\n"))
	require.NoError(t, err)

	_, err = cfg.Build()
	assert.ErrorIs(t, err, archive.ErrNoJobs)
}

func TestExamples(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "*", DefaultPath))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(filepath.Dir(path)), func(t *testing.T) {
			cfg, err := Load(path)
			require.NoError(t, err)

			la, err := cfg.Build()
			require.NoError(t, err)
			assert.Len(t, la.Schedules, len(cfg.Schedules))

			_, err = la.Template()
			require.NoError(t, err)
		})
	}
}
