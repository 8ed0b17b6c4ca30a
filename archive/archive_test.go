package archive

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/internal/naming"
	"github.com/lex00/logexport-aws-go/internal/template"
)

var testFunction = FunctionProps{S3Bucket: "artifacts", S3Key: "log-exporter.zip"}

func testProps(n int) Props {
	return Props{Schedules: jobs(n), Function: testFunction}
}

func typeCount(tmpl *logexport.Template, typ string) int {
	n := 0
	for _, def := range tmpl.Resources {
		if def.Type == typ {
			n++
		}
	}
	return n
}

func TestNew_EndToEnd(t *testing.T) {
	la, err := New("prod/LogExport", Props{
		Schedules: []ExportJob{{
			Name:              "daily-app-logs",
			Description:       "d",
			LogGroupName:      "/app/prod",
			DestinationPrefix: "app/",
		}},
		Function: testFunction,
	})
	require.NoError(t, err)

	managed, ok := la.Bucket.(*ManagedBucket)
	require.True(t, ok)
	assert.Regexp(t, `^log-archive-[0-9a-f]{8}$`, managed.BucketName)

	require.Len(t, la.Schedules, 1)
	d := la.Schedules[0]
	assert.Equal(t, 0, d.MinuteOffset)
	assert.Equal(t, 13, d.Hour)
	assert.Equal(t, Payload{LogGroupName: "/app/prod", DestinationPrefix: "app/"}, d.Payload)
	assert.Equal(t, RetryPolicy{MaximumEventAgeInSeconds: 60, MaximumRetryAttempts: 0}, d.RetryPolicy)

	tmpl, err := la.Template()
	require.NoError(t, err)

	bucket := tmpl.Resources[naming.ArchiveBucketID]
	assert.Equal(t, "AWS::S3::Bucket", bucket.Type)
	assert.Equal(t, managed.BucketName, bucket.Properties["BucketName"])

	policy := tmpl.Resources[naming.ArchiveBucketPolicyID]
	assert.Equal(t, "AWS::S3::BucketPolicy", policy.Type)

	schedule := tmpl.Resources[naming.ScheduleID("daily-app-logs")]
	assert.Equal(t, "AWS::Scheduler::Schedule", schedule.Type)
	assert.Equal(t, "daily-app-logs", schedule.Properties["Name"])
	assert.Equal(t, "d", schedule.Properties["Description"])
	assert.Equal(t, "cron(0 13 * * ? *)", schedule.Properties["ScheduleExpression"])
	assert.Equal(t, "UTC", schedule.Properties["ScheduleExpressionTimezone"])
	assert.Equal(t, "ENABLED", schedule.Properties["State"])
	assert.Equal(t, map[string]any{"Mode": "OFF"}, schedule.Properties["FlexibleTimeWindow"])
	assert.Equal(t, map[string]any{"Ref": naming.ScheduleGroupID}, schedule.Properties["GroupName"])

	target := schedule.Properties["Target"].(map[string]any)
	assert.JSONEq(t, `{"logGroupName":"/app/prod","destinationPrefix":"app/"}`, target["Input"].(string))
	assert.Equal(t, map[string]any{"Ref": naming.FunctionAliasID}, target["Arn"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{naming.SchedulerRoleID, "Arn"}}, target["RoleArn"])
	assert.Equal(t, map[string]any{
		"MaximumEventAgeInSeconds": 60,
		"MaximumRetryAttempts":     0,
	}, target["RetryPolicy"])
}

func TestNew_JobCounts(t *testing.T) {
	for _, n := range []int{1, 2, 30, 59, 60} {
		la, err := New("stack/LogExport", testProps(n))
		require.NoError(t, err, n)
		require.Len(t, la.Schedules, n)

		offsets := make(map[int]bool)
		for _, d := range la.Schedules {
			offsets[d.MinuteOffset] = true
		}
		for i := 0; i < n; i++ {
			assert.True(t, offsets[i], "missing offset %d for %d jobs", i, n)
		}

		tmpl, err := la.Template()
		require.NoError(t, err)
		assert.Equal(t, n, typeCount(tmpl, "AWS::Scheduler::Schedule"))
		assert.Len(t, tmpl.Resources, 10+n)
	}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		props    Props
		sentinel error
	}{
		{name: "no jobs", identity: "x", props: Props{Function: testFunction}, sentinel: ErrNoJobs},
		{name: "too many jobs", identity: "x", props: testProps(61), sentinel: ErrTooManyJobs},
		{
			name:     "duplicate names",
			identity: "x",
			props: Props{Function: testFunction, Schedules: []ExportJob{
				{Name: "a", LogGroupName: "/a"},
				{Name: "a", LogGroupName: "/b"},
			}},
			sentinel: ErrDuplicateJob,
		},
		{
			name:     "empty job name",
			identity: "x",
			props:    Props{Function: testFunction, Schedules: []ExportJob{{LogGroupName: "/a"}}},
			sentinel: ErrInvalidJob,
		},
		{
			name:     "bad job name",
			identity: "x",
			props:    Props{Function: testFunction, Schedules: []ExportJob{{Name: "has space", LogGroupName: "/a"}}},
			sentinel: ErrInvalidJob,
		},
		{
			name:     "bad log group",
			identity: "x",
			props:    Props{Function: testFunction, Schedules: []ExportJob{{Name: "a", LogGroupName: "/a b"}}},
			sentinel: ErrInvalidJob,
		},
		{
			name:     "malformed bucket",
			identity: "x",
			props:    Props{Function: testFunction, Schedules: jobs(1), TargetBucket: "Not_A_Bucket"},
			sentinel: ErrInvalidBucket,
		},
		{
			name:     "malformed bucket arn",
			identity: "x",
			props:    Props{Function: testFunction, Schedules: jobs(1), TargetBucket: "arn:aws:s3:::b/prefix"},
			sentinel: ErrInvalidBucket,
		},
		{
			name:     "hour too large",
			identity: "x",
			props:    Props{Function: testFunction, Schedules: jobs(1), Hour: aws.Int(24)},
			sentinel: ErrInvalidHour,
		},
		{
			name:     "negative hour",
			identity: "x",
			props:    Props{Function: testFunction, Schedules: jobs(1), Hour: aws.Int(-1)},
			sentinel: ErrInvalidHour,
		},
		{
			name:     "negative retention",
			identity: "x",
			props:    Props{Function: testFunction, Schedules: jobs(1), RetentionDays: -1},
			sentinel: ErrInvalidRetention,
		},
		{
			name:     "no function",
			identity: "x",
			props:    Props{Schedules: jobs(1)},
			sentinel: ErrInvalidFunction,
		},
		{
			name:     "bad function arn",
			identity: "x",
			props:    Props{Schedules: jobs(1), Function: FunctionProps{Arn: "arn:aws:s3:::b"}},
			sentinel: ErrInvalidFunction,
		},
		{
			name:     "arn and code",
			identity: "x",
			props: Props{Schedules: jobs(1), Function: FunctionProps{
				Arn:      "arn:aws:lambda:us-east-1:123456789012:function:f",
				S3Bucket: "a",
				S3Key:    "b",
			}},
			sentinel: ErrInvalidFunction,
		},
		{
			name:     "memory too small",
			identity: "x",
			props:    Props{Schedules: jobs(1), Function: FunctionProps{S3Bucket: "a", S3Key: "b", MemorySize: 64}},
			sentinel: ErrInvalidFunction,
		},
		{
			name:     "bad architecture",
			identity: "x",
			props:    Props{Schedules: jobs(1), Function: FunctionProps{S3Bucket: "a", S3Key: "b", Architecture: "mips"}},
			sentinel: ErrInvalidFunction,
		},
		{name: "empty identity", identity: "  ", props: testProps(1), sentinel: ErrInvalidIdentity},
		{
			name:     "local timezone",
			identity: "x",
			props:    Props{Function: testFunction, Schedules: jobs(1), Timezone: "Local"},
			sentinel: ErrInvalidTimezone,
		},
		{
			name:     "unknown timezone",
			identity: "x",
			props:    Props{Function: testFunction, Schedules: jobs(1), Timezone: "Mars/Olympus_Mons"},
			sentinel: ErrInvalidTimezone,
		},
		{
			// Distinct names whose SHA-256 digests share the first 8 hex characters.
			name:     "fingerprint collision",
			identity: "x",
			props: Props{Function: testFunction, Schedules: []ExportJob{
				{Name: "job-45873", LogGroupName: "/a"},
				{Name: "job-52859", LogGroupName: "/b"},
			}},
			sentinel: ErrDuplicateJob,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			la, err := New(tt.identity, tt.props)
			require.Error(t, err)
			assert.Nil(t, la)
			assert.ErrorIs(t, err, tt.sentinel)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.NotEmpty(t, cfgErr.Field)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestNew_ErrorText(t *testing.T) {
	_, err := New("x", Props{Function: testFunction})
	assert.EqualError(t, err, "invalid configuration: schedules: no jobs")

	_, err = New("x", testProps(61))
	assert.EqualError(t, err, "invalid configuration: schedules: too many jobs: 61 > 60")
}

func TestNew_Idempotent(t *testing.T) {
	props := testProps(5)
	a, err := New("prod/LogExport", props)
	require.NoError(t, err)
	b, err := New("prod/LogExport", props)
	require.NoError(t, err)

	assert.Equal(t, a.Names, b.Names)
	assert.Equal(t, a.Schedules, b.Schedules)

	ta, err := a.Template()
	require.NoError(t, err)
	tb, err := b.Template()
	require.NoError(t, err)

	ja, err := template.ToJSON(ta)
	require.NoError(t, err)
	jb, err := template.ToJSON(tb)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestNew_IdentityChangesSuffix(t *testing.T) {
	a, err := New("prod/LogExport", testProps(1))
	require.NoError(t, err)
	b, err := New("staging/LogExport", testProps(1))
	require.NoError(t, err)

	assert.NotEqual(t, a.Names.Suffix, b.Names.Suffix)
	assert.NotEqual(t, a.Names.Bucket, b.Names.Bucket)
	assert.Equal(t, a.Schedules[0].LogicalID, b.Schedules[0].LogicalID)
}

func TestNew_Reorder(t *testing.T) {
	a := ExportJob{Name: "alpha", LogGroupName: "/a", DestinationPrefix: "a/"}
	b := ExportJob{Name: "beta", LogGroupName: "/b", DestinationPrefix: "b/"}

	ab, err := New("x", Props{Schedules: []ExportJob{a, b}, Function: testFunction})
	require.NoError(t, err)
	ba, err := New("x", Props{Schedules: []ExportJob{b, a}, Function: testFunction})
	require.NoError(t, err)

	tab, err := ab.Template()
	require.NoError(t, err)
	tba, err := ba.Template()
	require.NoError(t, err)

	alphaID := naming.ScheduleID("alpha")
	betaID := naming.ScheduleID("beta")
	assert.Contains(t, tab.Resources, alphaID)
	assert.Contains(t, tba.Resources, alphaID)
	assert.Contains(t, tab.Resources, betaID)
	assert.Contains(t, tba.Resources, betaID)

	assert.Equal(t, "cron(0 13 * * ? *)", tab.Resources[alphaID].Properties["ScheduleExpression"])
	assert.Equal(t, "cron(1 13 * * ? *)", tba.Resources[alphaID].Properties["ScheduleExpression"])
	assert.Equal(t, "cron(1 13 * * ? *)", tab.Resources[betaID].Properties["ScheduleExpression"])
	assert.Equal(t, "cron(0 13 * * ? *)", tba.Resources[betaID].Properties["ScheduleExpression"])
}

func TestNew_BucketModeExclusive(t *testing.T) {
	managed, err := New("x", testProps(1))
	require.NoError(t, err)
	external, err := New("x", Props{Schedules: jobs(1), Function: testFunction, TargetBucket: "existing-bucket"})
	require.NoError(t, err)

	_, isManaged := managed.Bucket.(*ManagedBucket)
	_, isExternal := managed.Bucket.(*ExternalBucket)
	assert.True(t, isManaged)
	assert.False(t, isExternal)

	_, isManaged = external.Bucket.(*ManagedBucket)
	_, isExternal = external.Bucket.(*ExternalBucket)
	assert.False(t, isManaged)
	assert.True(t, isExternal)

	tm, err := managed.Template()
	require.NoError(t, err)
	te, err := external.Template()
	require.NoError(t, err)

	assert.Equal(t, 2, typeCount(tm, "AWS::S3::Bucket"))
	assert.Equal(t, 2, typeCount(tm, "AWS::S3::BucketPolicy"))
	assert.Equal(t, 0, typeCount(te, "AWS::S3::Bucket"))
	assert.Equal(t, 0, typeCount(te, "AWS::S3::BucketPolicy"))
	assert.Len(t, te.Resources, 6+1)

	assert.Equal(t, "existing-bucket", te.Outputs["BucketName"].Value)
	assert.Equal(t, map[string]any{"Ref": naming.ArchiveBucketID}, tm.Outputs["BucketName"].Value)
}

func TestNew_ExternalFunction(t *testing.T) {
	arn := "arn:aws:lambda:us-east-1:123456789012:function:exporter"
	la, err := New("x", Props{Schedules: jobs(2), Function: FunctionProps{Arn: arn}})
	require.NoError(t, err)

	tmpl, err := la.Template()
	require.NoError(t, err)

	assert.Equal(t, 0, typeCount(tmpl, "AWS::Lambda::Function"))
	assert.Equal(t, 0, typeCount(tmpl, "AWS::Lambda::Alias"))
	assert.Equal(t, arn, tmpl.Outputs["FunctionArn"].Value)

	for _, d := range la.Schedules {
		assert.Equal(t, arn, d.TargetArn)
	}
}

func TestNew_ProvisionedFunction(t *testing.T) {
	la, err := New("x", Props{Schedules: jobs(1), Function: testFunction})
	require.NoError(t, err)

	tmpl, err := la.Template()
	require.NoError(t, err)

	fn := tmpl.Resources[naming.FunctionID]
	assert.Equal(t, "AWS::Lambda::Function", fn.Type)
	assert.Equal(t, la.Names.Function, fn.Properties["FunctionName"])
	assert.Equal(t, DefaultRuntime, fn.Properties["Runtime"])
	assert.Equal(t, DefaultHandler, fn.Properties["Handler"])
	assert.Equal(t, []any{DefaultArchitecture}, fn.Properties["Architectures"])
	assert.Equal(t, DefaultMemorySize, fn.Properties["MemorySize"])
	assert.Equal(t, DefaultTimeout, fn.Properties["Timeout"])
	assert.Equal(t, map[string]any{"S3Bucket": "artifacts", "S3Key": "log-exporter.zip"}, fn.Properties["Code"])

	env := fn.Properties["Environment"].(map[string]any)["Variables"].(map[string]any)
	assert.Equal(t, map[string]any{"Ref": naming.ArchiveBucketID}, env[EnvDestinationBucket])

	alias := tmpl.Resources[naming.FunctionAliasID]
	assert.Equal(t, DefaultAlias, alias.Properties["Name"])

	logGroup := tmpl.Resources[naming.FunctionLogGroupID]
	assert.Equal(t, FunctionLogDays, logGroup.Properties["RetentionInDays"])
	assert.Equal(t, la.Names.FunctionLogs, logGroup.Properties["LogGroupName"])
}

func TestNew_HourAndTimezone(t *testing.T) {
	la, err := New("x", Props{Schedules: jobs(3), Function: testFunction, Hour: aws.Int(0), Timezone: "America/New_York"})
	require.NoError(t, err)

	assert.Equal(t, "cron(2 0 * * ? *)", la.Schedules[2].Expression())
	assert.Equal(t, "America/New_York", la.Schedules[2].Timezone)
}

func TestNew_Defaults(t *testing.T) {
	la, err := New("x", testProps(1))
	require.NoError(t, err)

	props := la.Props()
	require.NotNil(t, props.Hour)
	assert.Equal(t, DefaultHour, *props.Hour)
	assert.Equal(t, DefaultTimezone, props.Timezone)
	assert.Equal(t, DefaultRuntime, props.Function.Runtime)
	assert.NotNil(t, props.Provisioner)
}

func TestNew_Tags(t *testing.T) {
	props := testProps(1)
	props.Tags = map[string]string{"team": "platform", "env": "prod"}
	la, err := New("x", props)
	require.NoError(t, err)

	tmpl, err := la.Template()
	require.NoError(t, err)

	expected := []any{
		map[string]any{"Key": "env", "Value": "prod"},
		map[string]any{"Key": "team", "Value": "platform"},
	}
	for _, id := range []string{
		naming.ArchiveBucketID,
		naming.AccessLogBucketID,
		naming.ExecutionRoleID,
		naming.SchedulerRoleID,
		naming.FunctionID,
		naming.FunctionLogGroupID,
		naming.ScheduleGroupID,
	} {
		assert.Equal(t, expected, tmpl.Resources[id].Properties["Tags"], id)
	}
}

func TestLogArchive_Outputs(t *testing.T) {
	la, err := New("x", testProps(1))
	require.NoError(t, err)

	outputs := la.Outputs()
	for _, name := range []string{"BucketName", "BucketArn", "FunctionArn", "ExecutionRoleArn", "SchedulerRoleArn", "ScheduleGroupName"} {
		out, ok := outputs[name]
		require.True(t, ok, name)
		assert.NotNil(t, out.Value)
		require.NotNil(t, out.Export)
	}

	tmpl, err := la.Template()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Fn::Sub": "${AWS::StackName}-BucketArn"}, tmpl.Outputs["BucketArn"].Export.Name)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{naming.SchedulerRoleID, "Arn"}}, tmpl.Outputs["SchedulerRoleArn"].Value)
}

func TestLogArchive_Components(t *testing.T) {
	la, err := New("x", testProps(2))
	require.NoError(t, err)

	components := la.Components()
	require.Len(t, components, 12)
	assert.Equal(t, naming.ArchiveBucketID, components[0].LogicalID)
	assert.Equal(t, la.Schedules[0].LogicalID, components[10].LogicalID)
	assert.Equal(t, la.Schedules[1].LogicalID, components[11].LogicalID)

	components[0].LogicalID = "mutated"
	assert.Equal(t, naming.ArchiveBucketID, la.Components()[0].LogicalID)
}
