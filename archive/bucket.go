package archive

import (
	"net/netip"
	"regexp"
	"strings"

	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
	"github.com/lex00/logexport-aws-go/internal/naming"
	"github.com/lex00/logexport-aws-go/resources/s3"
)

// TargetBucket is the destination of the exports. It is either a
// *ManagedBucket or an *ExternalBucket, never both.
type TargetBucket interface {
	// Name is the bucket name as a template value.
	Name() any
	// Arn is the bucket ARN as a template value.
	Arn() any
	// ObjectArn matches every object of the bucket.
	ObjectArn() any

	targetBucket()
}

// ManagedBucket is a bucket provisioned by the construct. Its policy lets
// CloudWatch Logs deliver exports.
type ManagedBucket struct {
	BucketName string
	Components []Component
	// Policy is the single resource policy attached to the bucket.
	Policy intrinsics.PolicyDocument
}

func (b *ManagedBucket) Name() any { return intrinsics.Ref{LogicalName: naming.ArchiveBucketID} }

func (b *ManagedBucket) Arn() any {
	return logexport.AttrRef{Resource: naming.ArchiveBucketID, Attribute: "Arn"}
}

func (b *ManagedBucket) ObjectArn() any {
	return intrinsics.Sub{String: "${" + naming.ArchiveBucketID + ".Arn}/*"}
}

func (*ManagedBucket) targetBucket() {}

// ExternalBucket is an existing bucket referenced by name. No policy is
// attached; the bucket must already trust the logs delivery principal.
type ExternalBucket struct {
	BucketName string
	// BucketArn is set when the bucket was identified by ARN.
	BucketArn string
}

func (b *ExternalBucket) Name() any { return b.BucketName }

func (b *ExternalBucket) Arn() any {
	if b.BucketArn != "" {
		return b.BucketArn
	}
	return intrinsics.Sub{String: "arn:${AWS::Partition}:s3:::" + b.BucketName}
}

func (b *ExternalBucket) ObjectArn() any {
	if b.BucketArn != "" {
		return b.BucketArn + "/*"
	}
	return intrinsics.Sub{String: "arn:${AWS::Partition}:s3:::" + b.BucketName + "/*"}
}

func (*ExternalBucket) targetBucket() {}

var (
	bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	bucketArnPattern  = regexp.MustCompile(`^arn:(aws|aws-cn|aws-us-gov|aws-iso|aws-iso-b|aws-iso-e|aws-iso-f):s3:::([^/:]+)$`)
)

// ParseBucket accepts a bucket name or an S3 bucket ARN and returns the
// bucket name and, for an ARN, the ARN itself.
func ParseBucket(identifier string) (name, arn string, err error) {
	name = identifier
	if strings.HasPrefix(identifier, "arn:") {
		m := bucketArnPattern.FindStringSubmatch(identifier)
		if m == nil {
			return "", "", configErr("targetBucket", ErrInvalidBucket, "%q is not an S3 bucket ARN", identifier)
		}
		name, arn = m[2], identifier
	}
	if !validBucketName(name) {
		return "", "", configErr("targetBucket", ErrInvalidBucket, "%q is not a valid bucket name", name)
	}
	return name, arn, nil
}

func validBucketName(name string) bool {
	if !bucketNamePattern.MatchString(name) {
		return false
	}
	if strings.Contains(name, "..") || strings.Contains(name, ".-") || strings.Contains(name, "-.") {
		return false
	}
	if _, err := netip.ParseAddr(name); err == nil {
		return false
	}
	return !strings.HasPrefix(name, "xn--") && !strings.HasSuffix(name, "-s3alias")
}

// BucketResolver decides between a managed and an external target bucket.
type BucketResolver struct {
	Names       naming.Names
	Provisioner BucketProvisioner
}

// Resolve returns an *ExternalBucket when identifier is non-empty and a
// freshly provisioned *ManagedBucket otherwise.
func (r BucketResolver) Resolve(identifier string) (TargetBucket, error) {
	if identifier != "" {
		name, arn, err := ParseBucket(identifier)
		if err != nil {
			return nil, err
		}
		return &ExternalBucket{BucketName: name, BucketArn: arn}, nil
	}

	provisioner := r.Provisioner
	if provisioner == nil {
		provisioner = SecureBucketProvisioner{}
	}
	pb := provisioner.Provision(r.Names.Bucket)

	managed := &ManagedBucket{BucketName: r.Names.Bucket}
	statements := append(logsDeliveryStatements(managed), pb.PolicyStatements...)
	managed.Policy = intrinsics.NewPolicyDocument(statements...)

	managed.Components = append(managed.Components, Component{
		LogicalID: naming.ArchiveBucketID,
		Resource:  pb.Bucket,
	})
	managed.Components = append(managed.Components, pb.Supporting...)
	managed.Components = append(managed.Components, Component{
		LogicalID: naming.ArchiveBucketPolicyID,
		Resource: s3.BucketPolicy{
			Bucket:         managed.Name(),
			PolicyDocument: managed.Policy,
		},
	})
	return managed, nil
}

// LogsDeliveryPrincipal is the regional CloudWatch Logs service principal.
var LogsDeliveryPrincipal = intrinsics.ServicePrincipal{intrinsics.Sub{String: "logs.${AWS::Region}.amazonaws.com"}}

// logsDeliveryStatements are the grants CloudWatch Logs checks before it
// writes an export into a bucket.
func logsDeliveryStatements(b TargetBucket) []intrinsics.PolicyStatement {
	return []intrinsics.PolicyStatement{
		{
			Sid:       "AllowLogsGetBucketAcl",
			Effect:    intrinsics.Allow,
			Principal: LogsDeliveryPrincipal,
			Action:    "s3:GetBucketAcl",
			Resource:  b.Arn(),
		},
		{
			Sid:       "AllowLogsPutObject",
			Effect:    intrinsics.Allow,
			Principal: LogsDeliveryPrincipal,
			Action:    "s3:PutObject",
			Resource:  b.ObjectArn(),
			Condition: intrinsics.Json{
				intrinsics.StringEquals: intrinsics.Json{"s3:x-amz-acl": "bucket-owner-full-control"},
			},
		},
	}
}
