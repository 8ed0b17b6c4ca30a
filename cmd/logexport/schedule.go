package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lex00/logexport-aws-go/archive"
)

// slot is one row of the schedule table.
type slot struct {
	Minute            int    `json:"minute"`
	Name              string `json:"name"`
	Expression        string `json:"expression"`
	Timezone          string `json:"timezone"`
	LogGroupName      string `json:"logGroupName"`
	DestinationPrefix string `json:"destinationPrefix"`
	LogicalID         string `json:"logicalId"`
}

func slots(descriptors []archive.ScheduleDescriptor) []slot {
	out := make([]slot, len(descriptors))
	for i, d := range descriptors {
		out[i] = slot{
			Minute:            d.MinuteOffset,
			Name:              d.Name,
			Expression:        d.Expression(),
			Timezone:          d.Timezone,
			LogGroupName:      d.Payload.LogGroupName,
			DestinationPrefix: d.Payload.DestinationPrefix,
			LogicalID:         d.LogicalID,
		}
	}
	return out
}

func newScheduleCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the minute slot of every export job",
		Long: `Schedule prints when each job runs. Jobs share one export hour and run
one minute apart in config order, so reordering jobs moves their slots
without renaming their resources.

Examples:
    logexport schedule
    logexport schedule --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd, opts, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runSchedule(cmd *cobra.Command, opts *globalOptions, format string) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}

	s, err := opts.synthesize()
	if err != nil {
		return err
	}
	rows := slots(s.archive.Schedules)

	w := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(w, rows)
	}

	fmt.Fprintf(w, "Schedule group %s, %d of %d slots used\n\n", s.archive.Names.ScheduleGroup, len(rows), archive.MaxJobs)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MINUTE\tNAME\tCRON\tLOG GROUP\tPREFIX\tLOGICAL ID")
	for _, r := range rows {
		fmt.Fprintf(tw, "%02d\t%s\t%s %s\t%s\t%s\t%s\n",
			r.Minute, r.Name, r.Expression, r.Timezone, r.LogGroupName, r.DestinationPrefix, r.LogicalID)
	}
	return tw.Flush()
}
