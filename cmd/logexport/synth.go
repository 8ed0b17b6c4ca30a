package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/internal/logging"
	"github.com/lex00/logexport-aws-go/internal/template"
)

func newSynthCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate the CloudFormation template",
		Long: `Synth loads the config, derives the export stack and prints its template.

Configuration errors (no jobs, more than 60 jobs, a malformed bucket) are
reported before anything is written.

Examples:
    logexport synth
    logexport synth -o template.json
    logexport synth --format yaml --config prod.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd, opts, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runSynth(cmd *cobra.Command, opts *globalOptions, format, outputFile string) error {
	if err := checkFormat(format, "json", "yaml"); err != nil {
		return err
	}

	s, err := opts.synthesize()
	if err != nil {
		result := logexport.SynthResult{Success: false, Errors: []string{err.Error()}}
		return outputSynthFailure(result)
	}

	data, err := template.Encode(s.template, format)
	if err != nil {
		return err
	}
	logging.Info("synthesized", "stack", s.cfg.StackName, "resources", len(s.template.Resources), "schedules", len(s.archive.Schedules))
	return writeOutput(cmd.OutOrStdout(), data, outputFile)
}

func outputSynthFailure(result logexport.SynthResult) error {
	for _, e := range result.Errors {
		fmt.Fprintln(os.Stderr, e)
	}
	return &exitError{code: 1, err: fmt.Errorf("synth failed")}
}
