package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	logexport "github.com/lex00/logexport-aws-go"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List synthesized resources",
		Long: `List displays every CloudFormation resource of the synthesized stack.

Examples:
    logexport list
    logexport list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(cmd *cobra.Command, opts *globalOptions, format string) error {
	if err := checkFormat(format, "text", "json"); err != nil {
		return err
	}

	s, err := opts.synthesize()
	if err != nil {
		return err
	}

	listResult := logexport.ListResult{
		Resources: make([]logexport.ListResource, 0, len(s.template.Resources)),
	}
	for name, res := range s.template.Resources {
		listResult.Resources = append(listResult.Resources, logexport.ListResource{
			Name: name,
			Type: res.Type,
		})
	}

	// Sort by name for consistent output
	sort.Slice(listResult.Resources, func(i, j int) bool {
		return listResult.Resources[i].Name < listResult.Resources[j].Name
	})

	return outputListResult(cmd, listResult, format)
}

func outputListResult(cmd *cobra.Command, result logexport.ListResult, format string) error {
	w := cmd.OutOrStdout()

	if format == "json" {
		return writeJSON(w, result)
	}

	if len(result.Resources) == 0 {
		fmt.Fprintln(w, "No resources found.")
		return nil
	}

	fmt.Fprintf(w, "Resources (%d):\n\n", len(result.Resources))
	for _, res := range result.Resources {
		fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
	}
	return nil
}
