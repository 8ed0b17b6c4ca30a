// Package naming derives the deterministic names of the log archive's
// resources.
//
// Globally named resources (buckets, roles, the function and the schedule
// group) embed a NameSuffix computed from the deployment identity, so two
// deployments of the construct in one account never collide while a
// re-synthesis of the same deployment always produces the same names.
package naming

import (
	"crypto/sha256"
	"encoding/hex"
)

// SuffixLength is the number of hex characters kept from a digest.
const SuffixLength = 8

// Suffix returns the NameSuffix for a deployment identity.
func Suffix(identity string) string {
	return shortHash(identity)
}

// Fingerprint returns the short fingerprint of an export job name.
// It depends on the name only, never on the job's position.
func Fingerprint(jobName string) string {
	return shortHash(jobName)
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:SuffixLength]
}

// Names holds the physical names derived from one NameSuffix.
type Names struct {
	Suffix          string
	Bucket          string
	AccessLogBucket string
	ExecutionRole   string
	SchedulerRole   string
	Function        string
	FunctionLogs    string
	ScheduleGroup   string
}

// For derives every physical name from a deployment identity.
func For(identity string) Names {
	suffix := Suffix(identity)
	return Names{
		Suffix:          suffix,
		Bucket:          "log-archive-" + suffix,
		AccessLogBucket: "log-archive-" + suffix + "-access",
		ExecutionRole:   "log-export-exec-" + suffix,
		SchedulerRole:   "log-export-sched-" + suffix,
		Function:        "log-export-" + suffix,
		FunctionLogs:    "/aws/lambda/log-export-" + suffix,
		ScheduleGroup:   "log-export-" + suffix,
	}
}

// Logical IDs of the construct's fixed resources.
const (
	ArchiveBucketID       = "ArchiveBucket"
	ArchiveBucketPolicyID = "ArchiveBucketPolicy"
	AccessLogBucketID     = "AccessLogBucket"
	AccessLogPolicyID     = "AccessLogBucketPolicy"
	ExecutionRoleID       = "ExecutionRole"
	SchedulerRoleID       = "SchedulerRole"
	FunctionID            = "ExportFunction"
	FunctionAliasID       = "ExportFunctionAlias"
	FunctionLogGroupID    = "ExportFunctionLogGroup"
	ScheduleGroupID       = "ScheduleGroup"
)

// SchedulePrefix prefixes every schedule logical ID.
const SchedulePrefix = "ExportSchedule"

// ScheduleID returns the logical ID of the schedule for a job name.
func ScheduleID(jobName string) string {
	return SchedulePrefix + Fingerprint(jobName)
}
