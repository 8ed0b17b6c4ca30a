package archive

import (
	"strings"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
	"github.com/lex00/logexport-aws-go/internal/naming"
	"github.com/lex00/logexport-aws-go/resources/lambda"
	"github.com/lex00/logexport-aws-go/resources/logs"
)

// Environment variables read by the export function.
const (
	EnvDestinationBucket = "DESTINATION_BUCKET"
	EnvScheduleGroup     = "SCHEDULE_GROUP"
)

// externalFunction targets an existing function by ARN. A qualified ARN is
// invoked as given; the role still covers the whole function.
func externalFunction(arn string) FunctionTarget {
	m := functionPattern.FindStringSubmatch(arn)
	unqualified := arn
	if m != nil && m[5] != "" {
		unqualified = strings.TrimSuffix(arn, m[5])
	}
	return FunctionTarget{
		Arn:           unqualified,
		QualifiedArns: unqualified + ":*",
		InvokeArn:     arn,
	}
}

// provisionedFunction is the export function the construct deploys from
// an S3 code artifact, plus its alias and log group.
func provisionedFunction(names naming.Names, props FunctionProps, bucket TargetBucket, tags []intrinsics.Tag) (FunctionTarget, []Component) {
	logGroup := logs.LogGroup{
		LogGroupName:    names.FunctionLogs,
		RetentionInDays: FunctionLogDays,
		Tags:            tags,
	}

	fn := lambda.Function{
		FunctionName:  names.Function,
		Description:   "Exports CloudWatch Logs groups to S3",
		Runtime:       props.Runtime,
		Handler:       props.Handler,
		Architectures: []string{props.Architecture},
		MemorySize:    props.MemorySize,
		Timeout:       props.Timeout,
		Role:          logexport.AttrRef{Resource: naming.ExecutionRoleID, Attribute: "Arn"},
		Code: lambda.Function_Code{
			S3Bucket: props.S3Bucket,
			S3Key:    props.S3Key,
		},
		Environment: &lambda.Function_Environment{
			Variables: map[string]any{
				EnvDestinationBucket: bucket.Name(),
				EnvScheduleGroup:     names.ScheduleGroup,
			},
		},
		LoggingConfig: &lambda.Function_LoggingConfig{
			LogFormat: "JSON",
			LogGroup:  intrinsics.Ref{LogicalName: naming.FunctionLogGroupID},
		},
		Tags: tags,
	}

	alias := lambda.Alias{
		FunctionName:    intrinsics.Ref{LogicalName: naming.FunctionID},
		FunctionVersion: "$LATEST",
		Name:            DefaultAlias,
		Description:     "Invoked by the export schedules",
	}

	target := FunctionTarget{
		Arn:           logexport.AttrRef{Resource: naming.FunctionID, Attribute: "Arn"},
		QualifiedArns: intrinsics.Sub{String: "${" + naming.FunctionID + ".Arn}:*"},
		// Ref on an alias is its ARN.
		InvokeArn: intrinsics.Ref{LogicalName: naming.FunctionAliasID},
	}

	return target, []Component{
		{LogicalID: naming.FunctionLogGroupID, Resource: logGroup},
		{LogicalID: naming.FunctionID, Resource: fn},
		{LogicalID: naming.FunctionAliasID, Resource: alias},
	}
}
