package template

import (
	"fmt"
	"testing"

	"github.com/lex00/logexport-aws-go/intrinsics"
	"github.com/lex00/logexport-aws-go/resources/scheduler"
)

// BenchmarkBuild benchmarks building templates with varying schedule counts.
func BenchmarkBuild(b *testing.B) {
	for _, size := range []int{10, 30, 60} {
		b.Run(fmt.Sprintf("schedules_%d", size), func(b *testing.B) {
			builder := mockBuilder(size)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := builder.Build(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkToJSON benchmarks JSON serialization with varying schedule counts.
func BenchmarkToJSON(b *testing.B) {
	for _, size := range []int{10, 60} {
		b.Run(fmt.Sprintf("schedules_%d", size), func(b *testing.B) {
			tmpl, err := mockBuilder(size).Build()
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ToJSON(tmpl); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func mockBuilder(n int) *Builder {
	builder := NewBuilder("bench")
	_ = builder.Add("Group", scheduler.ScheduleGroup{Name: "g"})
	for i := 0; i < n; i++ {
		_ = builder.Add(fmt.Sprintf("Schedule%02d", i), scheduler.Schedule{
			Name:               fmt.Sprintf("job-%d", i),
			GroupName:          intrinsics.Ref{LogicalName: "Group"},
			ScheduleExpression: fmt.Sprintf("cron(%d 13 * * ? *)", i),
			FlexibleTimeWindow: scheduler.Schedule_FlexibleTimeWindow{Mode: scheduler.FlexibleTimeWindowOff},
			Target:             scheduler.Schedule_Target{Arn: "fn", RoleArn: "role"},
		})
	}
	return builder
}
