package schema

import (
	"fmt"
	"strings"
)

// ResourceSchema defines the schema for a resource type. Property paths are
// dotted for nested properties.
type ResourceSchema struct {
	Required   []string
	Properties map[string]PropertySchema
}

func (s ResourceSchema) knows(topLevel string) bool {
	for path := range s.Properties {
		if path == topLevel || strings.HasPrefix(path, topLevel+".") {
			return true
		}
	}
	for _, path := range s.Required {
		if path == topLevel || strings.HasPrefix(path, topLevel+".") {
			return true
		}
	}
	return false
}

// PropertySchema defines the schema for a property.
type PropertySchema struct {
	Type          string
	AllowedValues []string
	Min, Max      *float64
}

func (p PropertySchema) bounds() string {
	lo, hi := "-inf", "+inf"
	if p.Min != nil {
		lo = fmt.Sprint(*p.Min)
	}
	if p.Max != nil {
		hi = fmt.Sprint(*p.Max)
	}
	return lo + ".." + hi
}

func bound(n float64) *float64 { return &n }

func integer(lo, hi float64) PropertySchema {
	return PropertySchema{Type: "Integer", Min: bound(lo), Max: bound(hi)}
}

func oneOf(values ...string) PropertySchema {
	return PropertySchema{Type: "String", AllowedValues: values}
}

var (
	str    = PropertySchema{Type: "String"}
	list   = PropertySchema{Type: "List"}
	object = PropertySchema{Type: "Map"}
)

// resourceSchemas covers the resource types a log archive synthesizes.
var resourceSchemas = map[string]ResourceSchema{
	"AWS::S3::Bucket": {
		Properties: map[string]PropertySchema{
			"BucketName":                     str,
			"BucketEncryption":               object,
			"PublicAccessBlockConfiguration": object,
			"OwnershipControls.Rules":        list,
			"VersioningConfiguration.Status": oneOf("Enabled", "Suspended"),
			"LoggingConfiguration":           object,
			"LifecycleConfiguration.Rules":   list,
			"Tags":                           list,
		},
	},
	"AWS::S3::BucketPolicy": {
		Required: []string{"Bucket", "PolicyDocument"},
		Properties: map[string]PropertySchema{
			"PolicyDocument.Statement": list,
		},
	},
	"AWS::IAM::Role": {
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: map[string]PropertySchema{
			"RoleName":           str,
			"Description":        str,
			"Policies":           list,
			"ManagedPolicyArns":  list,
			"MaxSessionDuration": integer(3600, 43200),
			"Tags":               list,
		},
	},
	"AWS::Lambda::Function": {
		Required: []string{"Role", "Code"},
		Properties: map[string]PropertySchema{
			"FunctionName":  str,
			"Description":   str,
			"Runtime":       str,
			"Handler":       str,
			"Architectures": list,
			"MemorySize":    integer(128, 10240),
			"Timeout":       integer(1, 900),
			"Code":          object,
			"Environment":   object,
			"LoggingConfig": object,
			"Tags":          list,
		},
	},
	"AWS::Lambda::Alias": {
		Required: []string{"FunctionName", "FunctionVersion", "Name"},
		Properties: map[string]PropertySchema{
			"Name":        str,
			"Description": str,
		},
	},
	"AWS::Logs::LogGroup": {
		Properties: map[string]PropertySchema{
			"LogGroupName":    str,
			"RetentionInDays": integer(1, 3653),
			"Tags":            list,
		},
	},
	"AWS::Scheduler::ScheduleGroup": {
		Properties: map[string]PropertySchema{
			"Name": str,
			"Tags": list,
		},
	},
	"AWS::Scheduler::Schedule": {
		Required: []string{"ScheduleExpression", "FlexibleTimeWindow.Mode", "Target.Arn", "Target.RoleArn"},
		Properties: map[string]PropertySchema{
			"Name":                       str,
			"Description":                str,
			"GroupName":                  str,
			"ScheduleExpression":         str,
			"ScheduleExpressionTimezone": str,
			"State":                      oneOf("ENABLED", "DISABLED"),
			"FlexibleTimeWindow.Mode":    oneOf("OFF", "FLEXIBLE"),
			"FlexibleTimeWindow.MaximumWindowInMinutes":   integer(1, 1440),
			"Target.Input":                                str,
			"Target.RetryPolicy.MaximumEventAgeInSeconds": integer(60, 86400),
			"Target.RetryPolicy.MaximumRetryAttempts":     integer(0, 185),
		},
	},
}
