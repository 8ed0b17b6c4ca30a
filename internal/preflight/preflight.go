// Package preflight checks the live account before a deployment: every
// exported log group must exist and the destination bucket must be usable.
package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/lex00/logexport-aws-go/archive"
	"github.com/lex00/logexport-aws-go/internal/config"
	"github.com/lex00/logexport-aws-go/internal/naming"
)

// Status of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is the outcome of one preflight check.
type Check struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Report collects the checks of a run.
type Report struct {
	Checks []Check `json:"checks"`
}

// OK reports whether no check failed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Count returns the number of checks with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == s {
			n++
		}
	}
	return n
}

func (r *Report) add(name string, status Status, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, Status: status, Message: fmt.Sprintf(format, args...)})
}

// LogsAPI is the subset of the CloudWatch Logs client used here.
type LogsAPI interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
}

// S3API is the subset of the S3 client used here.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetBucketPolicy(ctx context.Context, params *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
}

// Checker runs the preflight checks.
type Checker struct {
	Logs LogsAPI
	S3   S3API
}

// Run checks cfg against the account. API failures become failed checks;
// the returned error is reserved for a config that cannot be built.
func (c *Checker) Run(ctx context.Context, cfg *config.Config) (Report, error) {
	var report Report

	la, err := cfg.Build()
	if err != nil {
		return report, err
	}

	for _, job := range la.Props().Schedules {
		c.checkLogGroup(ctx, &report, job)
	}

	if ext, ok := la.Bucket.(*archive.ExternalBucket); ok {
		c.checkExternalBucket(ctx, &report, ext.BucketName)
	} else {
		c.checkManagedBucketName(ctx, &report, la.Names)
	}

	return report, nil
}

// checkLogGroup pages through groups sharing the job's name as a prefix and
// looks for an exact match.
func (c *Checker) checkLogGroup(ctx context.Context, report *Report, job archive.ExportJob) {
	name := "log group " + job.LogGroupName
	exists, err := LogGroupExists(ctx, c.Logs, job.LogGroupName)
	switch {
	case err != nil:
		report.add(name, StatusFail, "describing log groups: %s", describeError(err))
	case !exists:
		report.add(name, StatusFail, "log group of job %q does not exist", job.Name)
	default:
		report.add(name, StatusPass, "exists")
	}
}

// LogGroupExists reports whether a log group with exactly this name exists.
func LogGroupExists(ctx context.Context, client LogsAPI, logGroupName string) (bool, error) {
	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(client, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(logGroupName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return false, err
		}
		for _, g := range page.LogGroups {
			if aws.ToString(g.LogGroupName) == logGroupName {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *Checker) checkExternalBucket(ctx context.Context, report *Report, bucket string) {
	name := "bucket " + bucket

	_, err := c.S3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		switch classify(err) {
		case errNotFound:
			report.add(name, StatusFail, "target bucket does not exist")
		case errForbidden:
			report.add(name, StatusFail, "target bucket exists but is not accessible")
		case errRedirect:
			report.add(name, StatusFail, "target bucket is in another region")
		default:
			report.add(name, StatusFail, "head bucket: %s", describeError(err))
		}
		return
	}
	report.add(name, StatusPass, "reachable")

	policyName := "bucket policy " + bucket
	out, err := c.S3.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: aws.String(bucket)})
	if err != nil {
		if apiCode(err) == "NoSuchBucketPolicy" {
			report.add(policyName, StatusWarn, "no bucket policy: CloudWatch Logs cannot write exports until one grants it access")
			return
		}
		report.add(policyName, StatusWarn, "reading bucket policy: %s", describeError(err))
		return
	}
	if PolicyGrantsLogs(aws.ToString(out.Policy)) {
		report.add(policyName, StatusPass, "grants the CloudWatch Logs service principal")
	} else {
		report.add(policyName, StatusWarn, "does not mention a logs.<region>.amazonaws.com principal")
	}
}

// checkManagedBucketName verifies the derived bucket name is not held by
// another account. An existing bucket we can reach is a previous deployment.
func (c *Checker) checkManagedBucketName(ctx context.Context, report *Report, names naming.Names) {
	name := "bucket name " + names.Bucket

	_, err := c.S3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(names.Bucket)})
	if err == nil {
		report.add(name, StatusPass, "exists in this account")
		return
	}
	switch classify(err) {
	case errNotFound:
		report.add(name, StatusPass, "available")
	case errForbidden, errRedirect:
		report.add(name, StatusFail, "name is taken by another account or region")
	default:
		report.add(name, StatusWarn, "head bucket: %s", describeError(err))
	}
}

type errClass int

const (
	errOther errClass = iota
	errNotFound
	errForbidden
	errRedirect
)

// classify maps S3 HeadBucket errors. HeadBucket has no body, so the
// API error code is the bare HTTP status text.
func classify(err error) errClass {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return errNotFound
	}
	var noSuchBucket *s3types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return errNotFound
	}
	switch apiCode(err) {
	case "NotFound", "NoSuchBucket":
		return errNotFound
	case "Forbidden", "AccessDenied":
		return errForbidden
	case "MovedPermanently", "PermanentRedirect", "301":
		return errRedirect
	}
	return errOther
}

func apiCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func describeError(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.ErrorMessage(); msg != "" {
			return apiErr.ErrorCode() + ": " + msg
		}
		return apiErr.ErrorCode()
	}
	return err.Error()
}

// PolicyGrantsLogs reports whether an S3 bucket policy has an Allow
// statement for a CloudWatch Logs service principal.
func PolicyGrantsLogs(policy string) bool {
	var doc struct {
		Statement []struct {
			Effect    string          `json:"Effect"`
			Principal json.RawMessage `json:"Principal"`
		} `json:"Statement"`
	}
	if err := json.Unmarshal([]byte(policy), &doc); err != nil {
		return false
	}
	for _, s := range doc.Statement {
		if s.Effect != "Allow" {
			continue
		}
		p := string(s.Principal)
		if strings.Contains(p, `logs.`) && strings.Contains(p, `.amazonaws.com`) {
			return true
		}
	}
	return false
}
