package template

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
	"github.com/lex00/logexport-aws-go/resources/iam"
	"github.com/lex00/logexport-aws-go/resources/lambda"
	"github.com/lex00/logexport-aws-go/resources/s3"
)

func TestBuilder_Build_SimpleResource(t *testing.T) {
	builder := NewBuilder("test")
	require.NoError(t, builder.Add("ArchiveBucket", s3.Bucket{BucketName: "log-archive-0123abcd"}))

	tmpl, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, "2010-09-09", tmpl.AWSTemplateFormatVersion)
	assert.Equal(t, "test", tmpl.Description)
	assert.Len(t, tmpl.Resources, 1)

	bucket := tmpl.Resources["ArchiveBucket"]
	assert.Equal(t, "AWS::S3::Bucket", bucket.Type)
	assert.Equal(t, "log-archive-0123abcd", bucket.Properties["BucketName"])
}

func TestBuilder_Build_WithDependencies(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.Add("ArchiveBucket", s3.Bucket{BucketName: "data-bucket"}))
	require.NoError(t, builder.Add("ExecutionRole", iam.Role{
		RoleName:                 "exec",
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(intrinsics.AssumeRoleStatement("lambda.amazonaws.com")),
	}))
	require.NoError(t, builder.Add("ExportFunction", lambda.Function{
		FunctionName: "exporter",
		Role:         logexport.AttrRef{Resource: "ExecutionRole", Attribute: "Arn"},
		Code:         lambda.Function_Code{S3Bucket: "artifacts", S3Key: "fn.zip"},
		Environment: &lambda.Function_Environment{
			Variables: map[string]any{"BUCKET": intrinsics.Ref{LogicalName: "ArchiveBucket"}},
		},
	}))

	tmpl, err := builder.Build()
	require.NoError(t, err)
	assert.Len(t, tmpl.Resources, 3)

	fn := tmpl.Resources["ExportFunction"]
	role := fn.Properties["Role"].(map[string]any)
	assert.Contains(t, role, "Fn::GetAtt")

	assert.Equal(t, []string{"ArchiveBucket", "ExecutionRole"}, Dependencies(fn))

	order, err := Order(tmpl)
	require.NoError(t, err)
	assert.Less(t, indexOf(order, "ExecutionRole"), indexOf(order, "ExportFunction"))
	assert.Less(t, indexOf(order, "ArchiveBucket"), indexOf(order, "ExportFunction"))
}

func TestBuilder_Add_Duplicate(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.Add("A", s3.Bucket{}))
	err := builder.Add("A", s3.Bucket{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
	assert.Error(t, builder.Add("", s3.Bucket{}))
	assert.Equal(t, 1, builder.Len())
}

func TestBuilder_Build_UnknownReference(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.Add("Policy", s3.BucketPolicy{
		Bucket:         intrinsics.Ref{LogicalName: "Missing"},
		PolicyDocument: intrinsics.NewPolicyDocument(),
	}))

	_, err := builder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Policy references unknown resource Missing")
}

func TestBuilder_Build_UnknownOutputReference(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.Add("ArchiveBucket", s3.Bucket{}))
	builder.AddOutput("RoleArn", logexport.Output{Value: logexport.AttrRef{Resource: "Nope", Attribute: "Arn"}})

	_, err := builder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output RoleArn")
}

func TestBuilder_Build_Outputs(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.Add("ArchiveBucket", s3.Bucket{}))
	builder.AddOutput("BucketArn", logexport.Output{
		Description: "arn",
		Value:       logexport.AttrRef{Resource: "ArchiveBucket", Attribute: "Arn"},
		Export:      &logexport.OutputExport{Name: intrinsics.Sub{String: "${AWS::StackName}-BucketArn"}},
	})

	tmpl, err := builder.Build()
	require.NoError(t, err)

	out := tmpl.Outputs["BucketArn"]
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"ArchiveBucket", "Arn"}}, out.Value)
	assert.Equal(t, map[string]any{"Fn::Sub": "${AWS::StackName}-BucketArn"}, out.Export.Name)
}

func TestBuilder_ExplicitDependsOn(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.Add("A", s3.Bucket{}))
	require.NoError(t, builder.Add("B", s3.Bucket{}, "A"))

	tmpl, err := builder.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, tmpl.Resources["B"].DependsOn)
}

func TestOrder_Chain(t *testing.T) {
	tmpl := &logexport.Template{Resources: map[string]logexport.ResourceDef{
		"C": {Type: "AWS::S3::Bucket", DependsOn: []string{"B"}},
		"B": {Type: "AWS::S3::Bucket", DependsOn: []string{"A"}},
		"A": {Type: "AWS::S3::Bucket"},
	}}

	order, err := Order(tmpl)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestOrder_DetectCycle(t *testing.T) {
	tmpl := &logexport.Template{Resources: map[string]logexport.ResourceDef{
		"A": {Type: "AWS::S3::Bucket", DependsOn: []string{"B"}},
		"B": {Type: "AWS::S3::Bucket", DependsOn: []string{"C"}},
		"C": {Type: "AWS::S3::Bucket", Properties: map[string]any{
			"BucketName": map[string]any{"Ref": "A"},
		}},
	}}

	_, err := Order(tmpl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency detected")
	assert.Contains(t, err.Error(), "AWS::S3::Bucket")
}

func TestReferences(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected []Reference
	}{
		{
			name:     "ref",
			value:    map[string]any{"Ref": "Bucket"},
			expected: []Reference{{Target: "Bucket"}},
		},
		{
			name:     "pseudo ref ignored",
			value:    map[string]any{"Ref": "AWS::Region"},
			expected: []Reference{},
		},
		{
			name:     "getatt list",
			value:    map[string]any{"Fn::GetAtt": []any{"Role", "Arn"}},
			expected: []Reference{{Target: "Role", Attribute: "Arn"}},
		},
		{
			name:     "getatt dotted",
			value:    map[string]any{"Fn::GetAtt": "Role.Arn"},
			expected: []Reference{{Target: "Role", Attribute: "Arn"}},
		},
		{
			name:  "sub string",
			value: map[string]any{"Fn::Sub": "${Function.Arn}:* in ${AWS::Region} for ${Bucket} ${!Literal}"},
			expected: []Reference{
				{Target: "Bucket"},
				{Target: "Function", Attribute: "Arn"},
			},
		},
		{
			name: "sub with variables",
			value: map[string]any{"Fn::Sub": []any{
				"${Arn}/*",
				map[string]any{"Arn": map[string]any{"Fn::GetAtt": []any{"Bucket", "Arn"}}},
			}},
			expected: []Reference{{Target: "Bucket", Attribute: "Arn"}},
		},
		{
			name: "nested and deduplicated",
			value: map[string]any{
				"Statement": []any{
					map[string]any{"Resource": map[string]any{"Ref": "Bucket"}},
					map[string]any{"Resource": map[string]any{"Ref": "Bucket"}},
				},
			},
			expected: []Reference{{Target: "Bucket"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, References(tt.value))
		})
	}
}

func TestToJSON(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.Add("ArchiveBucket", s3.Bucket{BucketName: "b"}))
	tmpl, err := builder.Build()
	require.NoError(t, err)

	data, err := ToJSON(tmpl)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "2010-09-09", parsed["AWSTemplateFormatVersion"])
	assert.True(t, strings.Contains(string(data), "\n  \"Resources\""))
}

func TestToYAML(t *testing.T) {
	builder := NewBuilder("")
	require.NoError(t, builder.Add("ArchiveBucket", s3.Bucket{BucketName: "b"}))
	tmpl, err := builder.Build()
	require.NoError(t, err)

	data, err := ToYAML(tmpl)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	resources := parsed["Resources"].(map[string]any)
	bucket := resources["ArchiveBucket"].(map[string]any)
	assert.Equal(t, "AWS::S3::Bucket", bucket["Type"])
}

func TestEncode(t *testing.T) {
	tmpl := &logexport.Template{AWSTemplateFormatVersion: FormatVersion, Resources: map[string]logexport.ResourceDef{}}

	for _, format := range []string{"", "json", "JSON", "yaml", "yml"} {
		_, err := Encode(tmpl, format)
		assert.NoError(t, err, format)
	}
	_, err := Encode(tmpl, "toml")
	assert.Error(t, err)
}

func indexOf(slice []string, s string) int {
	for i, v := range slice {
		if v == s {
			return i
		}
	}
	return -1
}
