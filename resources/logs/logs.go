// Package logs provides the AWS::Logs resource types used by the log archive.
package logs

import (
	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
)

// LogGroup represents an AWS::Logs::LogGroup resource.
type LogGroup struct {
	LogGroupName    any              `json:"LogGroupName,omitempty"`
	RetentionInDays int              `json:"RetentionInDays,omitempty"`
	Tags            []intrinsics.Tag `json:"Tags,omitempty"`

	// Arn is the GetAtt reference for the log group ARN.
	Arn logexport.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (LogGroup) ResourceType() string { return "AWS::Logs::LogGroup" }
