package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/logexport-aws-go/internal/differ"
)

func newDiffCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
		exitCode     bool
	)

	cmd := &cobra.Command{
		Use:   "diff <template1> [template2]",
		Short: "Compare two CloudFormation templates",
		Long: `Diff reports resources added, removed or modified between two templates.

With one argument the template is compared against the current synthesis,
which shows what a deploy would change. Reordering jobs modifies only the
schedules whose minute moves.

Examples:
    logexport diff deployed.json
    logexport diff old.json new.yaml
    logexport diff deployed.json --format json --exit-code`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, opts, args, outputFormat, differ.Options{IgnoreOrder: ignoreOrder}, exitCode)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Treat arrays as unordered")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with status 1 when the templates differ")

	return cmd
}

func runDiff(cmd *cobra.Command, opts *globalOptions, args []string, format string, dopts differ.Options, exitCode bool) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}

	var (
		result *differ.Result
		err    error
	)
	if len(args) == 2 {
		result, err = differ.CompareFiles(args[0], args[1], dopts)
	} else {
		result, err = diffAgainstSynthesis(opts, args[0], dopts)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format == "json" {
		err = writeJSON(w, result)
	} else {
		printDiff(w, result)
	}
	if err != nil {
		return err
	}

	if exitCode && !result.Empty() {
		return &exitError{code: 1}
	}
	return nil
}

func diffAgainstSynthesis(opts *globalOptions, path string, dopts differ.Options) (*differ.Result, error) {
	before, err := differ.LoadTemplate(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	s, err := opts.synthesize()
	if err != nil {
		return nil, err
	}
	return differ.Compare(before, s.template, dopts)
}

func printDiff(w io.Writer, result *differ.Result) {
	if result.Empty() {
		fmt.Fprintln(w, "No differences.")
		return
	}

	for _, e := range result.Diff.Added {
		fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Removed {
		fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range result.Diff.Modified {
		fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
		for _, c := range e.Changes {
			fmt.Fprintf(w, "    %s\n", c)
		}
	}

	s := result.Summary
	fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n", s.Added, s.Removed, s.Modified)
}
