package archive

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/lex00/logexport-aws-go/internal/naming"
	"github.com/lex00/logexport-aws-go/resources/scheduler"
)

// RetryPolicy bounds redelivery of a failed schedule invocation.
type RetryPolicy struct {
	MaximumEventAgeInSeconds int `json:"maximumEventAgeInSeconds"`
	MaximumRetryAttempts     int `json:"maximumRetryAttempts"`
}

// DefaultRetryPolicy drops an invocation that has not succeeded within a
// minute and never retries it.
var DefaultRetryPolicy = RetryPolicy{MaximumEventAgeInSeconds: 60, MaximumRetryAttempts: 0}

// Payload is the invocation input the export function receives.
type Payload struct {
	LogGroupName      string `json:"logGroupName"`
	DestinationPrefix string `json:"destinationPrefix"`
}

// ScheduleDescriptor is one job bound to its minute of the export hour.
type ScheduleDescriptor struct {
	// LogicalID derives from the job name only.
	LogicalID    string
	Fingerprint  string
	Name         string
	Description  string
	MinuteOffset int
	Hour         int
	Timezone     string
	TargetArn    any
	RoleArn      any
	Payload      Payload
	RetryPolicy  RetryPolicy
}

// Expression is the EventBridge Scheduler cron expression of the descriptor.
func (d ScheduleDescriptor) Expression() string {
	return fmt.Sprintf("cron(%d %d * * ? *)", d.MinuteOffset, d.Hour)
}

// Input is the JSON invocation payload.
func (d ScheduleDescriptor) Input() (string, error) {
	data, err := json.Marshal(d.Payload)
	if err != nil {
		return "", fmt.Errorf("encoding payload of %s: %w", d.Name, err)
	}
	return string(data), nil
}

// Resource renders the descriptor as a schedule in the given group.
func (d ScheduleDescriptor) Resource(groupName any) (scheduler.Schedule, error) {
	input, err := d.Input()
	if err != nil {
		return scheduler.Schedule{}, err
	}
	return scheduler.Schedule{
		Name:                       d.Name,
		Description:                d.Description,
		GroupName:                  groupName,
		ScheduleExpression:         d.Expression(),
		ScheduleExpressionTimezone: d.Timezone,
		FlexibleTimeWindow:         scheduler.Schedule_FlexibleTimeWindow{Mode: scheduler.FlexibleTimeWindowOff},
		State:                      scheduler.StateEnabled,
		Target: scheduler.Schedule_Target{
			Arn:     d.TargetArn,
			RoleArn: d.RoleArn,
			Input:   input,
			RetryPolicy: &scheduler.Schedule_RetryPolicy{
				MaximumEventAgeInSeconds: aws.Int(d.RetryPolicy.MaximumEventAgeInSeconds),
				MaximumRetryAttempts:     aws.Int(d.RetryPolicy.MaximumRetryAttempts),
			},
		},
	}, nil
}

// MinuteOffsets maps job positions to minutes: position i runs at minute i.
// More than MaxJobs positions do not fit in one hour.
func MinuteOffsets(n int) ([]int, error) {
	if n > MaxJobs {
		return nil, configErr("schedules", ErrTooManyJobs, "too many jobs: %d > %d", n, MaxJobs)
	}
	if n < 0 {
		n = 0
	}
	offsets := make([]int, n)
	for i := range offsets {
		offsets[i] = i
	}
	return offsets, nil
}

// ScheduleBinder binds export jobs to minutes of a single daily hour.
type ScheduleBinder struct {
	Hour     int
	Timezone string
	Retry    RetryPolicy
}

// Bind validates jobs and returns one descriptor per job, in job order.
// Nothing is returned on error. A zero Retry means DefaultRetryPolicy.
func (b ScheduleBinder) Bind(jobs []ExportJob, targetArn, roleArn any) ([]ScheduleDescriptor, error) {
	if err := ValidateJobs(jobs); err != nil {
		return nil, err
	}
	if b.Hour < 0 || b.Hour > 23 {
		return nil, configErr("hour", ErrInvalidHour, "hour %d outside 0..23", b.Hour)
	}

	if err := ValidateTimezone(b.Timezone); err != nil {
		return nil, err
	}
	timezone := b.Timezone
	if timezone == "" {
		timezone = DefaultTimezone
	}

	retry := b.Retry
	if retry == (RetryPolicy{}) {
		retry = DefaultRetryPolicy
	}

	offsets, err := MinuteOffsets(len(jobs))
	if err != nil {
		return nil, err
	}
	descriptors := make([]ScheduleDescriptor, len(jobs))
	for i, job := range jobs {
		descriptors[i] = ScheduleDescriptor{
			LogicalID:    naming.ScheduleID(job.Name),
			Fingerprint:  naming.Fingerprint(job.Name),
			Name:         job.Name,
			Description:  job.Description,
			MinuteOffset: offsets[i],
			Hour:         b.Hour,
			Timezone:     timezone,
			TargetArn:    targetArn,
			RoleArn:      roleArn,
			Payload: Payload{
				LogGroupName:      job.LogGroupName,
				DestinationPrefix: job.DestinationPrefix,
			},
			RetryPolicy: retry,
		}
	}
	return descriptors, nil
}
