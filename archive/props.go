// Package archive provides the log archive construct: a bucket, two IAM
// roles, an export function and one EventBridge Scheduler entry per export
// job, exporting CloudWatch Logs groups to S3 once a day.
//
// New validates the properties and derives every resource in a single pass:
//
//  1. BucketResolver provisions a managed bucket or references an external one.
//  2. AccessPolicyBuilder derives the execution and scheduler roles.
//  3. ScheduleBinder binds each job to a minute of the export hour.
//
// Nothing is derived when validation fails.
package archive

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lex00/logexport-aws-go/internal/naming"
)

// MaxJobs caps the number of export jobs: one per minute of the export hour.
const MaxJobs = 60

// Defaults applied by New.
const (
	DefaultHour         = 13
	DefaultTimezone     = "UTC"
	DefaultRuntime      = "provided.al2023"
	DefaultHandler      = "bootstrap"
	DefaultArchitecture = "arm64"
	DefaultMemorySize   = 128
	DefaultTimeout      = 300
	DefaultAlias        = "live"
	FunctionLogDays     = 30
)

// ExportJob is one request to copy a log group to a bucket prefix.
// Jobs are identified by Name.
type ExportJob struct {
	Name              string `json:"name" yaml:"name"`
	Description       string `json:"description,omitempty" yaml:"description,omitempty"`
	LogGroupName      string `json:"logGroupName" yaml:"logGroupName"`
	DestinationPrefix string `json:"destinationPrefix" yaml:"destinationPrefix"`
}

// FunctionProps selects the export function. Either Arn names an existing
// function, or S3Bucket and S3Key locate the code of a function the
// construct provisions.
type FunctionProps struct {
	Arn string

	S3Bucket     string
	S3Key        string
	Runtime      string
	Handler      string
	Architecture string
	MemorySize   int
	Timeout      int
}

// External reports whether the function is referenced rather than provisioned.
func (f FunctionProps) External() bool {
	return f.Arn != ""
}

// Props configures a LogArchive.
type Props struct {
	// Schedules is the ordered job list. Position i runs at minute i.
	Schedules []ExportJob
	// TargetBucket names (or ARN-identifies) an existing bucket. Empty
	// provisions a managed bucket.
	TargetBucket string
	// Hour is the UTC (or Timezone) hour all schedules run in. Nil means 13.
	Hour *int
	// Timezone of the schedule expressions. Empty means UTC.
	Timezone string
	// Function selects the export function.
	Function FunctionProps
	// RetentionDays expires archived objects of a managed bucket. Zero keeps
	// them forever.
	RetentionDays int
	// Tags are applied to every taggable resource.
	Tags map[string]string
	// Provisioner builds the managed bucket. Nil uses SecureBucketProvisioner.
	Provisioner BucketProvisioner
}

var (
	jobNamePattern  = regexp.MustCompile(`^[0-9A-Za-z._-]{1,64}$`)
	logGroupPattern = regexp.MustCompile(`^[.\-_/#A-Za-z0-9]{1,512}$`)
	functionPattern = regexp.MustCompile(`^arn:(aws[a-zA-Z-]*):lambda:([a-z0-9-]+):(\d{12}):function:([a-zA-Z0-9_-]{1,64})(:(\$LATEST|[a-zA-Z0-9_-]+))?$`)
)

// validate checks every property. It runs before any derivation.
func (p Props) validate(identity string) error {
	if err := ValidateJobs(p.Schedules); err != nil {
		return err
	}
	if p.TargetBucket != "" {
		if _, _, err := ParseBucket(p.TargetBucket); err != nil {
			return err
		}
	}
	if p.Hour != nil && (*p.Hour < 0 || *p.Hour > 23) {
		return configErr("hour", ErrInvalidHour, "hour %d outside 0..23", *p.Hour)
	}
	if err := ValidateTimezone(p.Timezone); err != nil {
		return err
	}
	if p.RetentionDays < 0 {
		return configErr("retentionDays", ErrInvalidRetention, "retention %d must not be negative", p.RetentionDays)
	}
	if err := p.Function.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(identity) == "" {
		return configErr("identity", ErrInvalidIdentity, "identity must not be empty")
	}
	return nil
}

// ValidateJobs checks the job list: 1..MaxJobs jobs with valid, unique names
// and valid log group names.
func ValidateJobs(jobs []ExportJob) error {
	if len(jobs) == 0 {
		return configErr("schedules", ErrNoJobs, "")
	}
	if len(jobs) > MaxJobs {
		return configErr("schedules", ErrTooManyJobs, "too many jobs: %d > %d", len(jobs), MaxJobs)
	}

	seen := make(map[string]int, len(jobs))
	fingerprints := make(map[string]int, len(jobs))
	for i, job := range jobs {
		field := fmt.Sprintf("schedules[%d]", i)
		if !jobNamePattern.MatchString(job.Name) {
			return configErr(field+".name", ErrInvalidJob, "name %q must match %s", job.Name, jobNamePattern)
		}
		if first, dup := seen[job.Name]; dup {
			return configErr(field+".name", ErrDuplicateJob, "name %q already used by schedules[%d]", job.Name, first)
		}
		seen[job.Name] = i
		fp := naming.Fingerprint(job.Name)
		if first, dup := fingerprints[fp]; dup {
			return configErr(field+".name", ErrDuplicateJob, "name %q shares fingerprint %s with schedules[%d]", job.Name, fp, first)
		}
		fingerprints[fp] = i
		if len(job.Description) > 512 {
			return configErr(field+".description", ErrInvalidJob, "description longer than 512 characters")
		}
		if !logGroupPattern.MatchString(job.LogGroupName) {
			return configErr(field+".target.logGroupName", ErrInvalidJob, "log group %q must match %s", job.LogGroupName, logGroupPattern)
		}
	}
	return nil
}

// ValidateTimezone accepts an empty timezone (UTC) or an IANA zone name the
// tz database knows. Local is rejected: it depends on the synthesizing host.
func ValidateTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if strings.EqualFold(tz, "local") {
		return configErr("timezone", ErrInvalidTimezone, "timezone must name a zone, not %s", tz)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return configErr("timezone", ErrInvalidTimezone, "unknown timezone %q", tz)
	}
	return nil
}

func (f FunctionProps) validate() error {
	if f.External() {
		if f.S3Bucket != "" || f.S3Key != "" {
			return configErr("function", ErrInvalidFunction, "arn and code location are mutually exclusive")
		}
		if !functionPattern.MatchString(f.Arn) {
			return configErr("function.arn", ErrInvalidFunction, "%q is not a Lambda function ARN", f.Arn)
		}
		return nil
	}
	if f.S3Bucket == "" || f.S3Key == "" {
		return configErr("function", ErrInvalidFunction, "either arn or s3Bucket and s3Key are required")
	}
	if f.MemorySize != 0 && (f.MemorySize < 128 || f.MemorySize > 10240) {
		return configErr("function.memorySize", ErrInvalidFunction, "memory size %d outside 128..10240", f.MemorySize)
	}
	if f.Timeout != 0 && (f.Timeout < 1 || f.Timeout > 900) {
		return configErr("function.timeout", ErrInvalidFunction, "timeout %d outside 1..900", f.Timeout)
	}
	switch f.Architecture {
	case "", "arm64", "x86_64":
	default:
		return configErr("function.architecture", ErrInvalidFunction, "architecture %q must be arm64 or x86_64", f.Architecture)
	}
	return nil
}

// withDefaults fills zero values.
func (p Props) withDefaults() Props {
	if p.Hour == nil {
		h := DefaultHour
		p.Hour = &h
	}
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if !p.Function.External() {
		f := &p.Function
		if f.Runtime == "" {
			f.Runtime = DefaultRuntime
		}
		if f.Handler == "" {
			f.Handler = DefaultHandler
		}
		if f.Architecture == "" {
			f.Architecture = DefaultArchitecture
		}
		if f.MemorySize == 0 {
			f.MemorySize = DefaultMemorySize
		}
		if f.Timeout == 0 {
			f.Timeout = DefaultTimeout
		}
	}
	if p.Provisioner == nil {
		p.Provisioner = SecureBucketProvisioner{RetentionDays: p.RetentionDays, Tags: p.Tags}
	}
	return p
}
