// Package scheduler provides the AWS::Scheduler resource types used by the
// log archive.
package scheduler

import (
	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
)

// StateEnabled is the state every export schedule is created in.
const StateEnabled = "ENABLED"

// FlexibleTimeWindowOff runs a schedule exactly at its expression's time.
const FlexibleTimeWindowOff = "OFF"

// ScheduleGroup represents an AWS::Scheduler::ScheduleGroup resource.
type ScheduleGroup struct {
	Name any              `json:"Name,omitempty"`
	Tags []intrinsics.Tag `json:"Tags,omitempty"`

	// Arn is the GetAtt reference for the group ARN.
	Arn logexport.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (ScheduleGroup) ResourceType() string { return "AWS::Scheduler::ScheduleGroup" }

// Schedule represents an AWS::Scheduler::Schedule resource.
type Schedule struct {
	Name                       string                      `json:"Name,omitempty"`
	Description                string                      `json:"Description,omitempty"`
	GroupName                  any                         `json:"GroupName,omitempty"`
	ScheduleExpression         string                      `json:"ScheduleExpression"`
	ScheduleExpressionTimezone string                      `json:"ScheduleExpressionTimezone,omitempty"`
	FlexibleTimeWindow         Schedule_FlexibleTimeWindow `json:"FlexibleTimeWindow"`
	State                      string                      `json:"State,omitempty"`
	Target                     Schedule_Target             `json:"Target"`

	// Arn is the GetAtt reference for the schedule ARN.
	Arn logexport.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Schedule) ResourceType() string { return "AWS::Scheduler::Schedule" }

// Schedule_FlexibleTimeWindow controls invocation jitter.
type Schedule_FlexibleTimeWindow struct {
	Mode                   string `json:"Mode"`
	MaximumWindowInMinutes int    `json:"MaximumWindowInMinutes,omitempty"`
}

// Schedule_Target is the invoked resource and its payload.
type Schedule_Target struct {
	Arn         any                   `json:"Arn"`
	RoleArn     any                   `json:"RoleArn"`
	Input       string                `json:"Input,omitempty"`
	RetryPolicy *Schedule_RetryPolicy `json:"RetryPolicy,omitempty"`
}

// Schedule_RetryPolicy bounds redelivery of a failed invocation.
// Fields are pointers so an explicit zero is emitted.
type Schedule_RetryPolicy struct {
	MaximumEventAgeInSeconds *int `json:"MaximumEventAgeInSeconds,omitempty"`
	MaximumRetryAttempts     *int `json:"MaximumRetryAttempts,omitempty"`
}
