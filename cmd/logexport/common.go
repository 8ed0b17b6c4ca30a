package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/archive"
	"github.com/lex00/logexport-aws-go/internal/awsclient"
	"github.com/lex00/logexport-aws-go/internal/config"
	"github.com/lex00/logexport-aws-go/internal/logging"
)

// synthesis is a loaded config together with the archive and template it
// produces.
type synthesis struct {
	cfg      *config.Config
	archive  *archive.LogArchive
	template *logexport.Template
}

func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	logging.Debug("config loaded", "path", o.configPath, "stack", cfg.StackName, "schedules", len(cfg.Schedules))
	return cfg, nil
}

func (o *globalOptions) synthesize() (*synthesis, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	return synthesizeConfig(cfg)
}

func synthesizeConfig(cfg *config.Config) (*synthesis, error) {
	la, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	tmpl, err := la.Template()
	if err != nil {
		return nil, fmt.Errorf("synthesizing template: %w", err)
	}
	logging.Debug("template synthesized", "resources", len(tmpl.Resources), "suffix", la.Names.Suffix)
	return &synthesis{cfg: cfg, archive: la, template: tmpl}, nil
}

// writeOutput writes data to outputFile, or to w when outputFile is empty.
func writeOutput(w io.Writer, data []byte, outputFile string) error {
	if outputFile == "" {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return err
	}
	logging.Info("wrote template", "path", outputFile)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unknown format: %s", format)
}

// awsOptions holds the flags of commands that talk to AWS.
type awsOptions struct {
	profile string
	region  string
}

func (a *awsOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.profile, "profile", "", "AWS shared config profile")
	cmd.Flags().StringVar(&a.region, "region", "", "AWS region (default from the environment or profile)")
}

func (a *awsOptions) clients(ctx context.Context) (*awsclient.Clients, error) {
	clients, err := awsclient.New(ctx, awsclient.Options{Profile: a.profile, Region: a.region})
	if err != nil {
		return nil, err
	}
	logging.Debug("aws config loaded", "profile", a.profile, "region", clients.Region())
	return clients, nil
}
