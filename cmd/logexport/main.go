// Command logexport synthesizes and deploys a daily CloudWatch Logs to S3
// export stack.
//
// Usage:
//
//	logexport synth                 Print the CloudFormation template
//	logexport schedule              Show the job to minute slot table
//	logexport validate              Check the synthesized template
//	logexport deploy                Create or update the stack
//	logexport version               Show version
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/lex00/logexport-aws-go/internal/config"
	"github.com/lex00/logexport-aws-go/internal/logging"
)

// exitError carries a process exit code through cobra. A nil err means the
// command already reported the failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	envFile    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintln(os.Stderr, exit.err)
		}
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "logexport",
		Short: "Daily CloudWatch Logs export to S3",
		Long: `logexport synthesizes a CloudFormation stack that exports CloudWatch Logs
groups to S3 once a day.

Describe the export jobs in logexport.yaml:

    schedules:
      - name: daily-app-logs
        target:
          logGroupName: /app/prod
          destinationPrefix: app/

Each job gets its own minute of the export hour (at most 60 jobs). Then:

    logexport synth -o template.json
    logexport deploy`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(opts.envFile); err != nil {
				return err
			}
			logging.Get().Configure(opts.logLevel)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the logexport config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (default from "+logging.EnvLogLevel+")")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file with LOGEXPORT_* overrides")

	rootCmd.AddCommand(
		newSynthCmd(opts),
		newValidateCmd(opts),
		newLintCmd(opts),
		newListCmd(opts),
		newScheduleCmd(opts),
		newGraphCmd(opts),
		newDiffCmd(opts),
		newWatchCmd(opts),
		newPreflightCmd(opts),
		newDeployCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "logexport %s\n", getVersion())
		},
	}
}
