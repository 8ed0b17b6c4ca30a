package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lex00/logexport-aws-go/archive"
	"github.com/lex00/logexport-aws-go/internal/status"
)

// statusResult is the JSON output of the status command.
type statusResult struct {
	Group     string         `json:"group"`
	Schedules []status.Entry `json:"schedules"`
	Drift     []status.Drift `json:"drift,omitempty"`
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		filter       string
		aws          awsOptions
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the deployed schedules",
		Long: `Status lists the schedules deployed in the stack's schedule group and
reports drift from the current config: missing, unexpected, changed or
disabled schedules.

Examples:
    logexport status
    logexport status --filter 'daily-*'
    logexport status --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(outputFormat, "text", "json"); err != nil {
				return err
			}
			match, err := status.CompileFilter(filter)
			if err != nil {
				return err
			}

			s, err := opts.synthesize()
			if err != nil {
				return err
			}
			clients, err := aws.clients(cmd.Context())
			if err != nil {
				return err
			}

			group := s.archive.Names.ScheduleGroup
			entries, err := status.List(cmd.Context(), clients.Scheduler(), group, status.Options{Filter: filter})
			if err != nil {
				return err
			}

			var expected []archive.ScheduleDescriptor
			for _, d := range s.archive.Schedules {
				if match(d.Name) {
					expected = append(expected, d)
				}
			}

			result := statusResult{
				Group:     group,
				Schedules: entries,
				Drift:     status.Compare(expected, entries),
			}
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return printStatus(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&filter, "filter", "", "Glob over schedule names, e.g. 'daily-*'")
	aws.register(cmd)

	return cmd
}

func printStatus(w io.Writer, result statusResult) error {
	if len(result.Schedules) == 0 {
		fmt.Fprintf(w, "No schedules deployed in %s.\n", result.Group)
	} else {
		fmt.Fprintf(w, "Schedule group %s (%d):\n\n", result.Group, len(result.Schedules))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSTATE\tCRON\tTARGET")
		for _, e := range result.Schedules {
			fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n", e.Name, e.State, e.Expression, e.Timezone, e.Target)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(result.Drift) == 0 {
		fmt.Fprintln(w, "\nIn sync with config.")
		return nil
	}
	fmt.Fprintln(w, "\nDrift:")
	for _, d := range result.Drift {
		if d.Detail != "" {
			fmt.Fprintf(w, "  %s %s: %s\n", d.Kind, d.Name, d.Detail)
		} else {
			fmt.Fprintf(w, "  %s %s\n", d.Kind, d.Name)
		}
	}
	return nil
}
