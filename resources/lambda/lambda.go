// Package lambda provides the AWS::Lambda resource types used by the log archive.
package lambda

import (
	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
)

// Function represents an AWS::Lambda::Function resource.
type Function struct {
	FunctionName  any                     `json:"FunctionName,omitempty"`
	Description   string                  `json:"Description,omitempty"`
	Runtime       string                  `json:"Runtime,omitempty"`
	Handler       string                  `json:"Handler,omitempty"`
	Architectures []string                `json:"Architectures,omitempty"`
	MemorySize    int                     `json:"MemorySize,omitempty"`
	Timeout       int                     `json:"Timeout,omitempty"`
	Role          any                     `json:"Role"`
	Code          Function_Code           `json:"Code"`
	Environment   *Function_Environment   `json:"Environment,omitempty"`
	LoggingConfig *Function_LoggingConfig `json:"LoggingConfig,omitempty"`
	Tags          []intrinsics.Tag        `json:"Tags,omitempty"`

	// Arn is the GetAtt reference for the unqualified function ARN.
	Arn logexport.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Function) ResourceType() string { return "AWS::Lambda::Function" }

// Function_Code locates the deployment package.
type Function_Code struct {
	S3Bucket        any    `json:"S3Bucket,omitempty"`
	S3Key           any    `json:"S3Key,omitempty"`
	S3ObjectVersion string `json:"S3ObjectVersion,omitempty"`
}

// Function_Environment holds environment variables.
type Function_Environment struct {
	Variables map[string]any `json:"Variables,omitempty"`
}

// Function_LoggingConfig routes function logs to a log group.
type Function_LoggingConfig struct {
	LogFormat string `json:"LogFormat,omitempty"`
	LogGroup  any    `json:"LogGroup,omitempty"`
}

// Alias represents an AWS::Lambda::Alias resource.
// Ref on an alias returns the qualified alias ARN.
type Alias struct {
	FunctionName    any    `json:"FunctionName"`
	FunctionVersion any    `json:"FunctionVersion"`
	Name            string `json:"Name"`
	Description     string `json:"Description,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Alias) ResourceType() string { return "AWS::Lambda::Alias" }
