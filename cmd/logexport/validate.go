package main

import (
	"fmt"

	"github.com/spf13/cobra"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/internal/validation"
)

// newValidateCmd creates the "validate" subcommand for checking the template.
func newValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		skipCfnLint  bool
	)

	cmd := &cobra.Command{
		Use:   "validate [template]",
		Short: "Validate the synthesized template",
		Long: `Validate checks the synthesized template, or a template file, for issues.

Checks performed:
  - Structure: resources exist, references resolve, no dependency cycles
  - Schedules: daily cron, one hour per group, one job per minute, at most 60
  - cfn-lint: CloudFormation schema and best-practice rules

Examples:
    logexport validate
    logexport validate template.json
    logexport validate --format json --skip-cfn-lint`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, args, outputFormat, skipCfnLint)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&skipCfnLint, "skip-cfn-lint", false, "Run the structural checks only")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *globalOptions, args []string, format string, skipCfnLint bool) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}
	vopts := validation.Options{SkipCfnLint: skipCfnLint}

	var (
		result *logexport.ValidateResult
		err    error
	)
	if len(args) == 1 {
		result, err = validation.ValidateFile(args[0], vopts)
	} else {
		var s *synthesis
		s, err = opts.synthesize()
		if err != nil {
			result = &logexport.ValidateResult{Errors: []string{err.Error()}}
			err = nil
		} else {
			result, err = validation.Validate(s.template, vopts)
		}
	}
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return outputValidateResult(cmd, *result, format)
}

func outputValidateResult(cmd *cobra.Command, result logexport.ValidateResult, format string) error {
	w := cmd.OutOrStdout()

	switch format {
	case "json":
		if err := writeJSON(w, result); err != nil {
			return err
		}

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
			for _, warnMsg := range result.Warnings {
				fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
			}
			return nil
		}

		fmt.Fprintln(w, "Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}
	}

	if !result.Success {
		return &exitError{code: 1}
	}
	return nil
}
