package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lex00/logexport-aws-go/internal/config"
	"github.com/lex00/logexport-aws-go/internal/linter"
	"github.com/lex00/logexport-aws-go/internal/logging"
	"github.com/lex00/logexport-aws-go/internal/template"
)

// newWatchCmd creates the "watch" subcommand for re-synthesizing on config changes.
func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		lintOnly     bool
		debounce     time.Duration
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize when the config changes",
		Long: `Watch monitors the config file and re-synthesizes on every change.

The watch command:
- Runs lint on each change
- Synthesizes if lint reports no errors (unless --lint-only)
- Debounces rapid changes, such as editors writing a file twice

Examples:
    logexport watch -o template.json
    logexport watch --lint-only
    logexport watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(outputFormat, "json", "yaml"); err != nil {
				return err
			}
			return runWatch(cmd, opts, watchOptions{
				lintOnly:     lintOnly,
				debounce:     debounce,
				outputFormat: outputFormat,
				outputFile:   outputFile,
			})
		},
	}

	cmd.Flags().BoolVar(&lintOnly, "lint-only", false, "Only run lint, skip synth")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format for synth: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for synth (default: summary only)")

	return cmd
}

type watchOptions struct {
	lintOnly     bool
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch watches the directory of the config file, since editors often
// replace a file instead of writing it in place.
func runWatch(cmd *cobra.Command, opts *globalOptions, wopts watchOptions) error {
	configPath, err := filepath.Abs(opts.configPath)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(configPath), err)
	}
	logging.Info("watching", "config", configPath)

	w := cmd.OutOrStdout()
	runLintAndSynth(w, configPath, wopts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)
	ctx := cmd.Context()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigEvent(event, configPath) {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(wopts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			logging.Info("change detected, re-synthesizing")
			runLintAndSynth(w, configPath, wopts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch error", "err", err)

		case <-ctx.Done():
			logging.Info("stopping watch")
			return nil
		}
	}
}

// isConfigEvent reports whether event writes or recreates the config file.
func isConfigEvent(event fsnotify.Event, configPath string) bool {
	if filepath.Clean(event.Name) != configPath {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// runLintAndSynth reports lint issues and synthesizes when none is an error.
func runLintAndSynth(w io.Writer, configPath string, wopts watchOptions) {
	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Error("config error", "err", err)
		return
	}

	result := linter.Lint(cfg, linter.Options{MinSeverity: linter.SeverityWarning})
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "%s: %s [%s]\n", issue.Severity, issue.Message, issue.Rule)
	}
	if !result.Success {
		logging.Warn("lint failed, skipping synth")
		return
	}
	if wopts.lintOnly {
		fmt.Fprintln(w, "Lint passed")
		return
	}

	s, err := synthesizeConfig(cfg)
	if err != nil {
		logging.Error("synth failed", "err", err)
		return
	}

	if wopts.outputFile == "" {
		fmt.Fprintf(w, "Synth successful: %d resources, %d schedules\n", len(s.template.Resources), len(s.archive.Schedules))
		return
	}

	data, err := template.Encode(s.template, wopts.outputFormat)
	if err != nil {
		logging.Error("encoding template", "err", err)
		return
	}
	if err := writeOutput(w, data, wopts.outputFile); err != nil {
		logging.Error("writing template", "err", err)
	}
}
