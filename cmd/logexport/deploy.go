package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/lex00/logexport-aws-go/internal/deploy"
	"github.com/lex00/logexport-aws-go/internal/logging"
	"github.com/lex00/logexport-aws-go/internal/preflight"
)

func newDeployCmd(opts *globalOptions) *cobra.Command {
	var (
		aws            awsOptions
		templateBucket string
		noWait         bool
		maxWait        time.Duration
		skipPreflight  bool
		tags           map[string]string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the export stack",
		Long: `Deploy synthesizes the template and creates the CloudFormation stack, or
updates it when it exists. The stack creates named IAM roles, so it is
submitted with CAPABILITY_NAMED_IAM.

Preflight checks run first and a failed check stops the deploy.

Examples:
    logexport deploy
    logexport deploy --profile prod --tag env=prod
    logexport deploy --template-bucket my-artifacts --no-wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := opts.synthesize()
			if err != nil {
				return err
			}
			clients, err := aws.clients(ctx)
			if err != nil {
				return err
			}

			if !skipPreflight {
				checker := &preflight.Checker{Logs: clients.Logs(), S3: clients.S3()}
				report, err := checker.Run(ctx, s.cfg)
				if err != nil {
					return err
				}
				for _, c := range report.Checks {
					if c.Status != preflight.StatusPass {
						logging.Warn("preflight", "check", c.Name, "status", c.Status, "message", c.Message)
					}
				}
				if !report.OK() {
					return fmt.Errorf("preflight failed: %d checks failed", report.Count(preflight.StatusFail))
				}
			}

			stackTags := make(map[string]string, len(s.cfg.Tags)+len(tags))
			for k, v := range s.cfg.Tags {
				stackTags[k] = v
			}
			for k, v := range tags {
				stackTags[k] = v
			}

			deployer := &deploy.Deployer{
				Client:   clients.CloudFormation(),
				Uploader: clients.S3(),
				Region:   clients.Region(),
				MaxWait:  maxWait,
				Logger:   logging.Get(),
			}
			result, err := deployer.Deploy(ctx, deploy.Request{
				StackName:      s.cfg.StackName,
				Template:       s.template,
				Tags:           stackTags,
				TemplateBucket: templateBucket,
				NoWait:         noWait,
			})
			if err != nil {
				return err
			}
			printDeployResult(cmd, result)
			return nil
		},
	}

	aws.register(cmd)
	cmd.Flags().StringVar(&templateBucket, "template-bucket", "", "Bucket for templates over the inline size limit")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the operation has started")
	cmd.Flags().DurationVar(&maxWait, "max-wait", deploy.DefaultMaxWait, "Longest time to wait for the stack")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Deploy without running preflight checks")
	cmd.Flags().StringToStringVar(&tags, "tag", nil, "Stack tag as key=value (repeatable)")

	return cmd
}

func printDeployResult(cmd *cobra.Command, result *deploy.Result) {
	w := cmd.OutOrStdout()

	switch result.Operation {
	case deploy.OperationNone:
		fmt.Fprintf(w, "Stack %s is up to date\n", result.StackName)
	default:
		fmt.Fprintf(w, "Stack %s: %s %s\n", result.StackName, result.Operation, result.Status)
	}

	if len(result.Outputs) == 0 {
		return
	}
	keys := make([]string, 0, len(result.Outputs))
	for k := range result.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "\nOutputs:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, result.Outputs[k])
	}
}
