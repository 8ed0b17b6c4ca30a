package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
	"github.com/lex00/logexport-aws-go/resources/iam"
	"github.com/lex00/logexport-aws-go/resources/s3"
	"github.com/lex00/logexport-aws-go/resources/scheduler"
)

func TestProperties_SimpleStruct(t *testing.T) {
	bucket := s3.Bucket{
		BucketName: "log-archive-0123abcd",
		Arn:        logexport.AttrRef{Resource: "ArchiveBucket", Attribute: "Arn"},
	}

	props, err := Properties(bucket)
	require.NoError(t, err)

	assert.Equal(t, "log-archive-0123abcd", props["BucketName"])
	assert.NotContains(t, props, "Tags")                    // empty slice omitted
	assert.NotContains(t, props, "VersioningConfiguration") // nil pointer omitted
	assert.NotContains(t, props, "Arn")                     // attribute refs are not properties
}

func TestProperties_Pointer(t *testing.T) {
	props, err := Properties(&s3.Bucket{BucketName: "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", props["BucketName"])
}

func TestProperties_NilPointer(t *testing.T) {
	var bucket *s3.Bucket
	_, err := Properties(bucket)
	assert.Error(t, err)
}

func TestProperties_NestedStruct(t *testing.T) {
	bucket := s3.Bucket{
		VersioningConfiguration: &s3.Bucket_VersioningConfiguration{Status: "Enabled"},
		OwnershipControls: &s3.Bucket_OwnershipControls{
			Rules: []s3.Bucket_OwnershipControlsRule{{ObjectOwnership: "BucketOwnerPreferred"}},
		},
	}

	props, err := Properties(bucket)
	require.NoError(t, err)

	versioning := props["VersioningConfiguration"].(map[string]any)
	assert.Equal(t, "Enabled", versioning["Status"])

	rules := props["OwnershipControls"].(map[string]any)["Rules"].([]any)
	require.Len(t, rules, 1)
	assert.Equal(t, "BucketOwnerPreferred", rules[0].(map[string]any)["ObjectOwnership"])
}

func TestProperties_Intrinsics(t *testing.T) {
	bucket := s3.Bucket{
		BucketName: intrinsics.Sub{String: "log-archive-${AWS::AccountId}"},
		LoggingConfiguration: &s3.Bucket_LoggingConfiguration{
			DestinationBucketName: intrinsics.Ref{LogicalName: "AccessLogBucket"},
		},
	}

	props, err := Properties(bucket)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"Fn::Sub": "log-archive-${AWS::AccountId}"}, props["BucketName"])
	logging := props["LoggingConfiguration"].(map[string]any)
	assert.Equal(t, map[string]any{"Ref": "AccessLogBucket"}, logging["DestinationBucketName"])
}

func TestProperties_AttrRefValue(t *testing.T) {
	role := iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(intrinsics.AssumeRoleStatement("scheduler.amazonaws.com")),
		ManagedPolicyArns:        []any{"arn:aws:iam::aws:policy/ReadOnlyAccess"},
	}
	props, err := Properties(role)
	require.NoError(t, err)

	doc := props["AssumeRolePolicyDocument"].(map[string]any)
	assert.Equal(t, "2012-10-17", doc["Version"])
	stmts := doc["Statement"].([]any)
	require.Len(t, stmts, 1)
	stmt := stmts[0].(map[string]any)
	assert.Equal(t, map[string]any{"Service": "scheduler.amazonaws.com"}, stmt["Principal"])
	assert.NotContains(t, stmt, "Sid")
}

func TestProperties_ExplicitZeroPointer(t *testing.T) {
	age, attempts := 60, 0
	schedule := scheduler.Schedule{
		ScheduleExpression: "cron(0 13 * * ? *)",
		FlexibleTimeWindow: scheduler.Schedule_FlexibleTimeWindow{Mode: scheduler.FlexibleTimeWindowOff},
		Target: scheduler.Schedule_Target{
			Arn:     "arn:aws:lambda:us-east-1:123456789012:function:f:live",
			RoleArn: "arn:aws:iam::123456789012:role/r",
			RetryPolicy: &scheduler.Schedule_RetryPolicy{
				MaximumEventAgeInSeconds: &age,
				MaximumRetryAttempts:     &attempts,
			},
		},
	}

	props, err := Properties(schedule)
	require.NoError(t, err)

	target := props["Target"].(map[string]any)
	retry := target["RetryPolicy"].(map[string]any)
	assert.Equal(t, 60, retry["MaximumEventAgeInSeconds"])
	assert.Equal(t, 0, retry["MaximumRetryAttempts"])

	window := props["FlexibleTimeWindow"].(map[string]any)
	assert.Equal(t, "OFF", window["Mode"])
	assert.NotContains(t, window, "MaximumWindowInMinutes")
}

func TestProperties_Map(t *testing.T) {
	type withMap struct {
		Variables map[string]any `json:"Variables,omitempty"`
	}
	v, err := Value(withMap{Variables: map[string]any{"LOG_LEVEL": "info", "N": 3}})
	require.NoError(t, err)
	vars := v.(map[string]any)["Variables"].(map[string]any)
	assert.Equal(t, "info", vars["LOG_LEVEL"])
	assert.Equal(t, 3, vars["N"])
}

func TestValue_AttrRef(t *testing.T) {
	v, err := Value(logexport.AttrRef{Resource: "ExportFunction", Attribute: "Arn"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"ExportFunction", "Arn"}}, v)
}

func TestValue_Scalars(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		expected any
	}{
		{"string", "x", "x"},
		{"int", 7, 7},
		{"bool", true, true},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Value(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}
