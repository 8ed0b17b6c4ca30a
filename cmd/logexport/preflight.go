package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lex00/logexport-aws-go/internal/preflight"
)

func newPreflightCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		aws          awsOptions
	)

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check the AWS account before deploying",
		Long: `Preflight checks that a deploy can succeed:
  - every job's log group exists
  - an external target bucket exists, is reachable and lets CloudWatch Logs write
  - the managed bucket name is not taken by another account

Examples:
    logexport preflight
    logexport preflight --profile prod --region eu-west-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(outputFormat, "text", "json"); err != nil {
				return err
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			clients, err := aws.clients(cmd.Context())
			if err != nil {
				return err
			}

			checker := &preflight.Checker{Logs: clients.Logs(), S3: clients.S3()}
			report, err := checker.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return outputPreflightReport(cmd, report, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	aws.register(cmd)

	return cmd
}

func outputPreflightReport(cmd *cobra.Command, report preflight.Report, format string) error {
	w := cmd.OutOrStdout()

	if format == "json" {
		if err := writeJSON(w, report); err != nil {
			return err
		}
	} else {
		for _, c := range report.Checks {
			fmt.Fprintf(w, "%-4s %s: %s\n", strings.ToUpper(string(c.Status)), c.Name, c.Message)
		}
		fmt.Fprintf(w, "\n%d passed, %d warnings, %d failed\n",
			report.Count(preflight.StatusPass), report.Count(preflight.StatusWarn), report.Count(preflight.StatusFail))
	}

	if !report.OK() {
		return &exitError{code: 1}
	}
	return nil
}
