package archive

import (
	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
	"github.com/lex00/logexport-aws-go/internal/naming"
	"github.com/lex00/logexport-aws-go/resources/iam"
)

// Service principals trusted by the two roles.
const (
	LambdaPrincipal    = "lambda.amazonaws.com"
	SchedulerPrincipal = "scheduler.amazonaws.com"
)

// Inline policy names.
const (
	ExportPolicyName = "log-export"
	InvokePolicyName = "invoke-export-function"
)

// basicExecutionRole grants the function its own CloudWatch Logs output.
var basicExecutionRole = intrinsics.Sub{String: "arn:${AWS::Partition}:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"}

// FunctionTarget is the export function as seen by the roles and schedules.
type FunctionTarget struct {
	// Arn is the unqualified function ARN.
	Arn any
	// QualifiedArns matches every version and alias of the function.
	QualifiedArns any
	// InvokeArn is what the schedules target.
	InvokeArn any
}

// AccessRoles are the two least-privilege roles of the construct.
type AccessRoles struct {
	Execution iam.Role
	Scheduler iam.Role
}

// AccessPolicyBuilder derives the execution and scheduler roles.
// The scheduler role can only invoke the function; the execution role can
// only start exports into the target bucket.
type AccessPolicyBuilder struct {
	Names naming.Names
	Tags  map[string]string
}

// Build derives both roles from the resolved bucket and function.
func (b AccessPolicyBuilder) Build(bucket TargetBucket, fn FunctionTarget) AccessRoles {
	return AccessRoles{
		Execution: b.ExecutionRole(bucket),
		Scheduler: b.SchedulerRole(fn),
	}
}

// ExecutionRole is assumed by the export function.
func (b AccessPolicyBuilder) ExecutionRole(bucket TargetBucket) iam.Role {
	return iam.Role{
		RoleName:                 b.Names.ExecutionRole,
		Description:              "Runs CloudWatch Logs export tasks into " + b.bucketLabel(bucket),
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(intrinsics.AssumeRoleStatement(LambdaPrincipal)),
		ManagedPolicyArns:        []any{basicExecutionRole},
		Policies: []iam.Role_Policy{{
			PolicyName: ExportPolicyName,
			PolicyDocument: intrinsics.NewPolicyDocument(
				intrinsics.PolicyStatement{
					Sid:    "CreateExportTask",
					Effect: intrinsics.Allow,
					Action: "logs:CreateExportTask",
					// Export task ARNs are not known ahead of time.
					Resource: "*",
				},
				intrinsics.PolicyStatement{
					Sid:      "ReadBucketAcl",
					Effect:   intrinsics.Allow,
					Action:   "s3:GetBucketAcl",
					Resource: bucket.Arn(),
				},
				intrinsics.PolicyStatement{
					Sid:      "WriteExports",
					Effect:   intrinsics.Allow,
					Action:   "s3:PutObject",
					Resource: bucket.ObjectArn(),
				},
			),
		}},
		Tags: intrinsics.Tags(b.Tags),
		Arn:  logexport.AttrRef{Resource: naming.ExecutionRoleID, Attribute: "Arn"},
	}
}

// SchedulerRole is assumed by EventBridge Scheduler to invoke the function.
func (b AccessPolicyBuilder) SchedulerRole(fn FunctionTarget) iam.Role {
	return iam.Role{
		RoleName:                 b.Names.SchedulerRole,
		Description:              "Invokes the log export function on schedule",
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(intrinsics.AssumeRoleStatement(SchedulerPrincipal)),
		Policies: []iam.Role_Policy{{
			PolicyName: InvokePolicyName,
			PolicyDocument: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
				Sid:      "InvokeExportFunction",
				Effect:   intrinsics.Allow,
				Action:   "lambda:InvokeFunction",
				Resource: intrinsics.Any(fn.Arn, fn.QualifiedArns),
			}),
		}},
		Tags: intrinsics.Tags(b.Tags),
		Arn:  logexport.AttrRef{Resource: naming.SchedulerRoleID, Attribute: "Arn"},
	}
}

func (b AccessPolicyBuilder) bucketLabel(bucket TargetBucket) string {
	switch t := bucket.(type) {
	case *ManagedBucket:
		return t.BucketName
	case *ExternalBucket:
		return t.BucketName
	}
	return "the archive bucket"
}
