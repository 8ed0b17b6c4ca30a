// Package status reads the deployed export schedules back from EventBridge
// Scheduler and compares them with the synthesized ones.
package status

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/gobwas/glob"

	"github.com/lex00/logexport-aws-go/archive"
)

// SchedulerAPI is the subset of the EventBridge Scheduler client used here.
type SchedulerAPI interface {
	ListSchedules(ctx context.Context, params *scheduler.ListSchedulesInput, optFns ...func(*scheduler.Options)) (*scheduler.ListSchedulesOutput, error)
	GetSchedule(ctx context.Context, params *scheduler.GetScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.GetScheduleOutput, error)
}

// Entry is one deployed schedule.
type Entry struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	Expression string `json:"expression"`
	Timezone   string `json:"timezone,omitempty"`
	Target     string `json:"target"`
	Input      string `json:"input,omitempty"`
}

// Options filters List.
type Options struct {
	// Filter is a glob over schedule names, e.g. "daily-*". Empty matches all.
	Filter string
}

// CompileFilter returns a name matcher for a glob. An empty filter matches
// every name.
func CompileFilter(filter string) (func(string) bool, error) {
	if filter == "" {
		return func(string) bool { return true }, nil
	}
	g, err := glob.Compile(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
	}
	return g.Match, nil
}

// List returns the schedules of group sorted by name.
func List(ctx context.Context, client SchedulerAPI, group string, opts Options) ([]Entry, error) {
	match, err := CompileFilter(opts.Filter)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	paginator := scheduler.NewListSchedulesPaginator(client, &scheduler.ListSchedulesInput{
		GroupName: aws.String(group),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing schedules of %s: %w", group, err)
		}
		for _, summary := range page.Schedules {
			name := aws.ToString(summary.Name)
			if !match(name) {
				continue
			}
			detail, err := client.GetSchedule(ctx, &scheduler.GetScheduleInput{
				Name:      summary.Name,
				GroupName: aws.String(group),
			})
			if err != nil {
				return nil, fmt.Errorf("reading schedule %s: %w", name, err)
			}
			entry := Entry{
				Name:       name,
				State:      string(detail.State),
				Expression: aws.ToString(detail.ScheduleExpression),
				Timezone:   aws.ToString(detail.ScheduleExpressionTimezone),
			}
			if detail.Target != nil {
				entry.Target = aws.ToString(detail.Target.Arn)
				entry.Input = aws.ToString(detail.Target.Input)
			}
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// DriftKind classifies a difference between synthesized and deployed schedules.
type DriftKind string

const (
	DriftMissing    DriftKind = "missing"
	DriftUnexpected DriftKind = "unexpected"
	DriftChanged    DriftKind = "changed"
	DriftDisabled   DriftKind = "disabled"
)

// Drift is one difference.
type Drift struct {
	Name   string    `json:"name"`
	Kind   DriftKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

// Compare reports schedules that are synthesized but not deployed, deployed
// but not synthesized, deployed with another expression, timezone, target
// or input, or disabled. Each differing attribute is one DriftChanged.
// Targets are compared only when the synthesized target is a literal ARN,
// inputs only when the deployed input is readable. Results are sorted by
// name.
func Compare(expected []archive.ScheduleDescriptor, deployed []Entry) []Drift {
	byName := make(map[string]Entry, len(deployed))
	for _, e := range deployed {
		byName[e.Name] = e
	}

	var drifts []Drift
	for _, d := range expected {
		e, ok := byName[d.Name]
		if !ok {
			drifts = append(drifts, Drift{Name: d.Name, Kind: DriftMissing})
			continue
		}
		delete(byName, d.Name)

		for _, detail := range changes(d, e) {
			drifts = append(drifts, Drift{Name: d.Name, Kind: DriftChanged, Detail: detail})
		}
		if e.State != "" && e.State != "ENABLED" {
			drifts = append(drifts, Drift{Name: d.Name, Kind: DriftDisabled, Detail: e.State})
		}
	}
	for name := range byName {
		drifts = append(drifts, Drift{Name: name, Kind: DriftUnexpected})
	}

	sort.SliceStable(drifts, func(i, j int) bool { return drifts[i].Name < drifts[j].Name })
	return drifts
}

func changes(d archive.ScheduleDescriptor, e Entry) []string {
	var out []string
	if e.Expression != d.Expression() {
		out = append(out, fmt.Sprintf("expression %s, want %s", e.Expression, d.Expression()))
	}

	// Scheduler evaluates expressions without a timezone in UTC.
	tz := e.Timezone
	if tz == "" {
		tz = archive.DefaultTimezone
	}
	if tz != d.Timezone {
		out = append(out, fmt.Sprintf("timezone %s, want %s", tz, d.Timezone))
	}

	if arn, ok := d.TargetArn.(string); ok && e.Target != "" && e.Target != arn {
		out = append(out, fmt.Sprintf("target %s, want %s", e.Target, arn))
	}

	if input, err := d.Input(); err == nil && e.Input != "" && e.Input != input {
		out = append(out, fmt.Sprintf("input %s, want %s", e.Input, input))
	}
	return out
}
