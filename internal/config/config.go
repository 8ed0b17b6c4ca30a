// Package config loads the logexport YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lex00/logexport-aws-go/archive"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "logexport.yaml"

// Defaults applied to zero values.
const (
	DefaultStackName = "log-export"
	DefaultID        = "LogExport"
)

// Environment overrides.
const (
	EnvStackName    = "LOGEXPORT_STACK_NAME"
	EnvTargetBucket = "LOGEXPORT_TARGET_BUCKET"
	EnvHour         = "LOGEXPORT_HOUR"
)

// Config is the on-disk form of a log archive deployment.
type Config struct {
	StackName     string            `yaml:"stackName"`
	ID            string            `yaml:"id"`
	Hour          *int              `yaml:"hour,omitempty"`
	Timezone      string            `yaml:"timezone,omitempty"`
	TargetBucket  string            `yaml:"targetBucket,omitempty"`
	RetentionDays int               `yaml:"retentionDays,omitempty"`
	Function      FunctionConfig    `yaml:"function"`
	Tags          map[string]string `yaml:"tags,omitempty"`
	Schedules     []ScheduleConfig  `yaml:"schedules"`
}

// FunctionConfig selects the export function.
type FunctionConfig struct {
	Arn          string `yaml:"arn,omitempty"`
	S3Bucket     string `yaml:"s3Bucket,omitempty"`
	S3Key        string `yaml:"s3Key,omitempty"`
	Runtime      string `yaml:"runtime,omitempty"`
	Handler      string `yaml:"handler,omitempty"`
	Architecture string `yaml:"architecture,omitempty"`
	MemorySize   int    `yaml:"memorySize,omitempty"`
	Timeout      int    `yaml:"timeout,omitempty"`
}

// ScheduleConfig is one export job.
type ScheduleConfig struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Target      TargetConfig `yaml:"target"`
}

// TargetConfig is the invocation payload of a job.
type TargetConfig struct {
	LogGroupName      string `yaml:"logGroupName"`
	DestinationPrefix string `yaml:"destinationPrefix"`
}

// Load reads path, applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment. A missing file is not an error. Variables that are already
// set win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from LOGEXPORT_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvStackName); v != "" {
		c.StackName = v
	}
	if v := getenv(EnvTargetBucket); v != "" {
		c.TargetBucket = v
	}
	if v := getenv(EnvHour); v != "" {
		h, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not an hour: %w", EnvHour, v, err)
		}
		c.Hour = &h
	}
	return nil
}

// ApplyDefaults fills the zero values the construct itself does not default.
func (c *Config) ApplyDefaults() {
	if c.StackName == "" {
		c.StackName = DefaultStackName
	}
	if c.ID == "" {
		c.ID = DefaultID
	}
}

// Identity is the stable per-deployment identity the resource names
// derive from.
func (c *Config) Identity() string {
	return c.StackName + "/" + c.ID
}

// Props converts the config into construct properties.
func (c *Config) Props() archive.Props {
	jobs := make([]archive.ExportJob, len(c.Schedules))
	for i, s := range c.Schedules {
		jobs[i] = archive.ExportJob{
			Name:              s.Name,
			Description:       s.Description,
			LogGroupName:      s.Target.LogGroupName,
			DestinationPrefix: s.Target.DestinationPrefix,
		}
	}
	return archive.Props{
		Schedules:     jobs,
		TargetBucket:  c.TargetBucket,
		Hour:          c.Hour,
		Timezone:      c.Timezone,
		RetentionDays: c.RetentionDays,
		Tags:          c.Tags,
		Function: archive.FunctionProps{
			Arn:          c.Function.Arn,
			S3Bucket:     c.Function.S3Bucket,
			S3Key:        c.Function.S3Key,
			Runtime:      c.Function.Runtime,
			Handler:      c.Function.Handler,
			Architecture: c.Function.Architecture,
			MemorySize:   c.Function.MemorySize,
			Timeout:      c.Function.Timeout,
		},
	}
}

// Build constructs the archive described by the config.
func (c *Config) Build() (*archive.LogArchive, error) {
	return archive.New(c.Identity(), c.Props())
}
