package main

import (
	"fmt"

	"github.com/spf13/cobra"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/internal/linter"
)

func newLintCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat  string
		rules         []string
		minSeverity   string
		slotThreshold int
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the config for likely mistakes",
		Long: `Lint checks the export config for mistakes the stack would accept.

Rules:
    LEX000: Configuration the stack rejects (no jobs, too many jobs, bad bucket)
    LEX001: Two jobs export the same log group
    LEX002: Destination prefix should end with "/"
    LEX003: Destination prefix nests inside another job's prefix
    LEX004: Schedule slot usage of the export hour
    LEX005: retentionDays has no effect on an external bucket
    LEX006: Timezone is not a known IANA zone
    LEX007: Job has no description

Examples:
    logexport lint
    logexport lint --rules LEX001,LEX003
    logexport lint --min-severity warning --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, opts, outputFormat, linter.Options{
				EnabledRules:  rules,
				MinSeverity:   minSeverity,
				SlotThreshold: slotThreshold,
			})
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&rules, "rules", nil, "Rules to run (default: all)")
	cmd.Flags().StringVar(&minSeverity, "min-severity", "info", "Lowest severity to report: info, warning or error")
	cmd.Flags().IntVar(&slotThreshold, "slot-threshold", linter.DefaultSlotThreshold, "Slot usage that triggers LEX004")

	return cmd
}

func runLint(cmd *cobra.Command, opts *globalOptions, format string, lopts linter.Options) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}

	result, err := linter.LintFile(opts.configPath, lopts)
	if err != nil {
		return fmt.Errorf("lint failed: %w", err)
	}
	return outputLintResult(cmd, result, format)
}

func outputLintResult(cmd *cobra.Command, result logexport.LintResult, format string) error {
	w := cmd.OutOrStdout()

	switch format {
	case "json":
		if err := writeJSON(w, result); err != nil {
			return err
		}

	case "text":
		if len(result.Issues) == 0 {
			fmt.Fprintln(w, "No issues found.")
			return nil
		}

		for _, issue := range result.Issues {
			if issue.Path != "" {
				fmt.Fprintf(w, "%s: %s: %s [%s]\n", issue.Path, issue.Severity, issue.Message, issue.Rule)
			} else {
				fmt.Fprintf(w, "%s: %s [%s]\n", issue.Severity, issue.Message, issue.Rule)
			}
		}
	}

	if !result.Success {
		return &exitError{code: 2} // Exit code 2 for issues found
	}
	return nil
}
