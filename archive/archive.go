package archive

import (
	"fmt"
	"sort"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
	"github.com/lex00/logexport-aws-go/internal/naming"
	"github.com/lex00/logexport-aws-go/internal/template"
	"github.com/lex00/logexport-aws-go/resources/scheduler"
)

// Description is the template description of a synthesized archive.
const Description = "Daily export of CloudWatch Logs groups to S3"

// LogArchive is a fully derived log archive construct.
type LogArchive struct {
	// Identity is the stable per-deployment identity the names derive from.
	Identity  string
	Names     naming.Names
	Bucket    TargetBucket
	Function  FunctionTarget
	Roles     AccessRoles
	Schedules []ScheduleDescriptor

	props      Props
	components []Component
}

// New validates props and derives every resource of the construct.
// On error no LogArchive is returned.
func New(identity string, props Props) (*LogArchive, error) {
	if err := props.validate(identity); err != nil {
		return nil, err
	}
	props = props.withDefaults()

	names := naming.For(identity)
	tags := intrinsics.Tags(props.Tags)
	a := &LogArchive{Identity: identity, Names: names, props: props}

	bucket, err := BucketResolver{Names: names, Provisioner: props.Provisioner}.Resolve(props.TargetBucket)
	if err != nil {
		return nil, err
	}
	a.Bucket = bucket
	if managed, ok := bucket.(*ManagedBucket); ok {
		a.components = append(a.components, managed.Components...)
	}

	var fnComponents []Component
	if props.Function.External() {
		a.Function = externalFunction(props.Function.Arn)
	} else {
		a.Function, fnComponents = provisionedFunction(names, props.Function, bucket, tags)
	}

	a.Roles = AccessPolicyBuilder{Names: names, Tags: props.Tags}.Build(bucket, a.Function)
	a.components = append(a.components,
		Component{LogicalID: naming.ExecutionRoleID, Resource: a.Roles.Execution},
		Component{LogicalID: naming.SchedulerRoleID, Resource: a.Roles.Scheduler},
	)
	a.components = append(a.components, fnComponents...)

	binder := ScheduleBinder{Hour: *props.Hour, Timezone: props.Timezone, Retry: DefaultRetryPolicy}
	a.Schedules, err = binder.Bind(props.Schedules, a.Function.InvokeArn, a.Roles.Scheduler.Arn)
	if err != nil {
		return nil, err
	}

	a.components = append(a.components, Component{
		LogicalID: naming.ScheduleGroupID,
		Resource:  scheduler.ScheduleGroup{Name: names.ScheduleGroup, Tags: tags},
	})
	group := intrinsics.Ref{LogicalName: naming.ScheduleGroupID}
	for _, d := range a.Schedules {
		res, err := d.Resource(group)
		if err != nil {
			return nil, err
		}
		a.components = append(a.components, Component{LogicalID: d.LogicalID, Resource: res})
	}

	return a, nil
}

// Props returns the properties with defaults applied.
func (a *LogArchive) Props() Props {
	return a.props
}

// Components returns every resource of the construct in derivation order.
func (a *LogArchive) Components() []Component {
	return append([]Component(nil), a.components...)
}

// Outputs returns the template outputs. Export names are prefixed with the
// stack name.
func (a *LogArchive) Outputs() map[string]logexport.Output {
	out := func(description string, value any, name string) logexport.Output {
		return logexport.Output{
			Description: description,
			Value:       value,
			Export:      &logexport.OutputExport{Name: intrinsics.Sub{String: "${AWS::StackName}-" + name}},
		}
	}
	return map[string]logexport.Output{
		"BucketName":        out("Archive bucket name", a.Bucket.Name(), "BucketName"),
		"BucketArn":         out("Archive bucket ARN", a.Bucket.Arn(), "BucketArn"),
		"FunctionArn":       out("Export function ARN", a.Function.Arn, "FunctionArn"),
		"ExecutionRoleArn":  out("Export function execution role ARN", a.Roles.Execution.Arn, "ExecutionRoleArn"),
		"SchedulerRoleArn":  out("Scheduler invocation role ARN", a.Roles.Scheduler.Arn, "SchedulerRoleArn"),
		"ScheduleGroupName": out("Schedule group name", intrinsics.Ref{LogicalName: naming.ScheduleGroupID}, "ScheduleGroupName"),
	}
}

// Template synthesizes the CloudFormation template of the construct.
func (a *LogArchive) Template() (*logexport.Template, error) {
	builder := template.NewBuilder(Description)
	for _, c := range a.components {
		if err := builder.Add(c.LogicalID, c.Resource, c.DependsOn...); err != nil {
			return nil, fmt.Errorf("adding %s: %w", c.LogicalID, err)
		}
	}

	outputs := a.Outputs()
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		builder.AddOutput(name, outputs[name])
	}

	return builder.Build()
}
