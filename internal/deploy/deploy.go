// Package deploy creates or updates the CloudFormation stack of a
// synthesized log archive and waits for it to settle.
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/internal/logging"
)

// MaxTemplateBody is the largest template CloudFormation accepts inline.
// Larger templates must be uploaded to S3 first.
const MaxTemplateBody = 51200

// DefaultMaxWait bounds how long Deploy waits for the stack to settle.
const DefaultMaxWait = 30 * time.Minute

// Operation is what Deploy did to the stack.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationNone   Operation = "none"
)

// CloudFormationAPI is the subset of the CloudFormation client used here.
type CloudFormationAPI interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
	DescribeStackEvents(ctx context.Context, params *cloudformation.DescribeStackEventsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error)
}

// UploadAPI stores oversized templates.
type UploadAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Waiter blocks until the stack reaches a terminal state.
type Waiter interface {
	WaitCreate(ctx context.Context, stackName string, maxWait time.Duration) error
	WaitUpdate(ctx context.Context, stackName string, maxWait time.Duration) error
}

// Request describes one deployment.
type Request struct {
	StackName string
	Template  *logexport.Template
	Tags      map[string]string
	// TemplateBucket receives the template when it exceeds MaxTemplateBody.
	TemplateBucket string
	// NoWait returns as soon as the operation has started.
	NoWait bool
}

// Result reports a finished deployment.
type Result struct {
	StackName string            `json:"stackName"`
	StackID   string            `json:"stackId,omitempty"`
	Operation Operation         `json:"operation"`
	Status    string            `json:"status,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
}

// Deployer runs deployments against one account and region.
type Deployer struct {
	Client   CloudFormationAPI
	Uploader UploadAPI
	// Waiter defaults to the SDK's stack waiters over Client.
	Waiter  Waiter
	Region  string
	MaxWait time.Duration
	Logger  *logging.Logger
}

func (d *Deployer) logger() *logging.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.Get()
}

func (d *Deployer) waiter() Waiter {
	if d.Waiter != nil {
		return d.Waiter
	}
	return SDKWaiter{Client: d.Client}
}

// Deploy creates the stack when it does not exist and updates it otherwise.
// An update with no changes is not an error.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	if req.StackName == "" {
		return nil, errors.New("stack name is required")
	}
	if req.Template == nil {
		return nil, errors.New("template is required")
	}

	body, err := json.Marshal(req.Template)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}

	source, err := d.templateSource(ctx, req, body)
	if err != nil {
		return nil, err
	}

	stack, err := d.describe(ctx, req.StackName)
	if err != nil {
		return nil, err
	}

	maxWait := d.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	result := &Result{StackName: req.StackName}
	log := d.logger()

	switch {
	case stack == nil:
		log.Info("creating stack", "stack", req.StackName)
		out, err := d.Client.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:    aws.String(req.StackName),
			TemplateBody: source.body,
			TemplateURL:  source.url,
			Capabilities: []types.Capability{types.CapabilityCapabilityNamedIam},
			Tags:         stackTags(req.Tags),
		})
		if err != nil {
			return nil, fmt.Errorf("creating stack %s: %w", req.StackName, err)
		}
		result.Operation = OperationCreate
		result.StackID = aws.ToString(out.StackId)
		if !req.NoWait {
			if err := d.waiter().WaitCreate(ctx, req.StackName, maxWait); err != nil {
				return nil, d.failure(ctx, req.StackName, err)
			}
		}

	case stack.StackStatus == types.StackStatusRollbackComplete:
		return nil, fmt.Errorf("stack %s is in %s and must be deleted before it can be deployed again", req.StackName, stack.StackStatus)

	case strings.HasSuffix(string(stack.StackStatus), "_IN_PROGRESS"):
		return nil, fmt.Errorf("stack %s is busy (%s)", req.StackName, stack.StackStatus)

	default:
		log.Info("updating stack", "stack", req.StackName, "status", stack.StackStatus)
		result.StackID = aws.ToString(stack.StackId)
		_, err := d.Client.UpdateStack(ctx, &cloudformation.UpdateStackInput{
			StackName:    aws.String(req.StackName),
			TemplateBody: source.body,
			TemplateURL:  source.url,
			Capabilities: []types.Capability{types.CapabilityCapabilityNamedIam},
			Tags:         stackTags(req.Tags),
		})
		if err != nil {
			if IsNoUpdates(err) {
				log.Info("stack is up to date", "stack", req.StackName)
				result.Operation = OperationNone
				result.Status = string(stack.StackStatus)
				result.Outputs = outputs(stack)
				return result, nil
			}
			return nil, fmt.Errorf("updating stack %s: %w", req.StackName, err)
		}
		result.Operation = OperationUpdate
		if !req.NoWait {
			if err := d.waiter().WaitUpdate(ctx, req.StackName, maxWait); err != nil {
				return nil, d.failure(ctx, req.StackName, err)
			}
		}
	}

	final, err := d.describe(ctx, req.StackName)
	if err != nil {
		return nil, err
	}
	if final != nil {
		result.Status = string(final.StackStatus)
		result.Outputs = outputs(final)
	}
	log.Info("stack deployed", "stack", req.StackName, "operation", result.Operation, "status", result.Status)
	return result, nil
}

type templateSource struct {
	body *string
	url  *string
}

func (d *Deployer) templateSource(ctx context.Context, req Request, body []byte) (templateSource, error) {
	if len(body) <= MaxTemplateBody {
		return templateSource{body: aws.String(string(body))}, nil
	}
	if req.TemplateBucket == "" || d.Uploader == nil {
		return templateSource{}, fmt.Errorf("template is %d bytes, over the %d byte inline limit; set a template bucket", len(body), MaxTemplateBody)
	}

	key := fmt.Sprintf("logexport/%s/%d.json", req.StackName, time.Now().UnixNano())
	_, err := d.Uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(req.TemplateBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return templateSource{}, fmt.Errorf("uploading template to %s: %w", req.TemplateBucket, err)
	}
	d.logger().Debug("uploaded template", "bucket", req.TemplateBucket, "key", key, "bytes", len(body))
	return templateSource{url: aws.String(TemplateURL(req.TemplateBucket, d.Region, key))}, nil
}

// TemplateURL is the virtual-hosted S3 URL CloudFormation reads a template from.
func TemplateURL(bucket, region, key string) string {
	if region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// describe returns the stack, or nil when it does not exist.
func (d *Deployer) describe(ctx context.Context, stackName string) (*types.Stack, error) {
	out, err := d.Client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if IsStackNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("describing stack %s: %w", stackName, err)
	}
	if len(out.Stacks) == 0 {
		return nil, nil
	}
	return &out.Stacks[0], nil
}

// MaxFailureEvents bounds the failure reasons attached to a deploy error.
const MaxFailureEvents = 5

// failure wraps a waiter error with the most recent failed resource events,
// one per logical resource.
func (d *Deployer) failure(ctx context.Context, stackName string, waitErr error) error {
	reasons, err := FailedEvents(ctx, d.Client, stackName)
	if err != nil {
		d.logger().Warn("could not read stack events", "stack", stackName, "err", err)
	}
	if len(reasons) == 0 {
		return fmt.Errorf("deploying stack %s: %w", stackName, waitErr)
	}
	return fmt.Errorf("deploying stack %s: %w\n  %s", stackName, waitErr, strings.Join(reasons, "\n  "))
}

// FailedEvents lists "<LogicalId> <Status>: <Reason>" for the latest failed
// event of each resource, newest first.
func FailedEvents(ctx context.Context, client CloudFormationAPI, stackName string) ([]string, error) {
	out, err := client.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var reasons []string
	for _, event := range out.StackEvents {
		id := aws.ToString(event.LogicalResourceId)
		if seen[id] || !strings.HasSuffix(string(event.ResourceStatus), "_FAILED") {
			continue
		}
		seen[id] = true
		reasons = append(reasons, fmt.Sprintf("%s %s: %s", id, event.ResourceStatus, aws.ToString(event.ResourceStatusReason)))
		if len(reasons) >= MaxFailureEvents {
			break
		}
	}
	return reasons, nil
}

// IsStackNotFound reports the ValidationError DescribeStacks returns for a
// stack that does not exist.
func IsStackNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "does not exist")
}

// IsNoUpdates reports the ValidationError UpdateStack returns when the
// template and tags are unchanged.
func IsNoUpdates(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed")
}

func stackTags(tags map[string]string) []types.Tag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

func outputs(stack *types.Stack) map[string]string {
	if len(stack.Outputs) == 0 {
		return nil
	}
	out := make(map[string]string, len(stack.Outputs))
	for _, o := range stack.Outputs {
		out[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return out
}

// SDKWaiter waits with the CloudFormation SDK's stack waiters.
type SDKWaiter struct {
	Client cloudformation.DescribeStacksAPIClient
}

// WaitCreate waits for CREATE_COMPLETE.
func (w SDKWaiter) WaitCreate(ctx context.Context, stackName string, maxWait time.Duration) error {
	waiter := cloudformation.NewStackCreateCompleteWaiter(w.Client)
	return waiter.Wait(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(stackName)}, maxWait)
}

// WaitUpdate waits for UPDATE_COMPLETE.
func (w SDKWaiter) WaitUpdate(ctx context.Context, stackName string, maxWait time.Duration) error {
	waiter := cloudformation.NewStackUpdateCompleteWaiter(w.Client)
	return waiter.Wait(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(stackName)}, maxWait)
}
