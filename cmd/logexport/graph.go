package main

import (
	"github.com/spf13/cobra"

	"github.com/lex00/logexport-aws-go/internal/graph"
)

func newGraphCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat   string
		includeOutputs bool
		clusterByType  bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.

The output can be rendered with Graphviz:
    logexport graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    logexport graph -f mermaid

Examples:
    logexport graph
    logexport graph --outputs          # include template outputs
    logexport graph -c                 # cluster by service
    logexport graph -f mermaid         # mermaid format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := graph.ParseFormat(outputFormat)
			if err != nil {
				return err
			}

			s, err := opts.synthesize()
			if err != nil {
				return err
			}

			gen := &graph.Generator{
				Format:         format,
				IncludeOutputs: includeOutputs,
				ClusterByType:  clusterByType,
			}
			return gen.Generate(s.template, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVar(&includeOutputs, "outputs", false, "Include template outputs in the graph")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by AWS service type")

	return cmd
}
