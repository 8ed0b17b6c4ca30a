// Package awsclient loads AWS configuration and hands out service clients.
package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
)

// Options selects the credentials profile and region. Empty values fall back
// to the SDK's default chain (AWS_PROFILE, AWS_REGION, shared config).
type Options struct {
	Profile string
	Region  string
}

// LoadConfig resolves the AWS configuration for opts.
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error

	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	return config.LoadDefaultConfig(ctx, loadOpts...)
}

// Clients holds an AWS configuration and creates service clients on first use.
type Clients struct {
	cfg aws.Config

	cfn       *cloudformation.Client
	logs      *cloudwatchlogs.Client
	s3        *s3.Client
	scheduler *scheduler.Client
}

// New loads the configuration for opts.
func New(ctx context.Context, opts Options) (*Clients, error) {
	cfg, err := LoadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	return FromConfig(cfg), nil
}

// FromConfig wraps an already resolved configuration.
func FromConfig(cfg aws.Config) *Clients {
	return &Clients{cfg: cfg}
}

// Region is the resolved region.
func (c *Clients) Region() string {
	return c.cfg.Region
}

// CloudFormation returns the CloudFormation client.
func (c *Clients) CloudFormation() *cloudformation.Client {
	if c.cfn == nil {
		c.cfn = cloudformation.NewFromConfig(c.cfg)
	}
	return c.cfn
}

// Logs returns the CloudWatch Logs client.
func (c *Clients) Logs() *cloudwatchlogs.Client {
	if c.logs == nil {
		c.logs = cloudwatchlogs.NewFromConfig(c.cfg)
	}
	return c.logs
}

// S3 returns the S3 client.
func (c *Clients) S3() *s3.Client {
	if c.s3 == nil {
		c.s3 = s3.NewFromConfig(c.cfg)
	}
	return c.s3
}

// Scheduler returns the EventBridge Scheduler client.
func (c *Clients) Scheduler() *scheduler.Client {
	if c.scheduler == nil {
		c.scheduler = scheduler.NewFromConfig(c.cfg)
	}
	return c.scheduler
}
