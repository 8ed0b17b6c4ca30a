package archive

import (
	"github.com/lex00/logexport-aws-go/intrinsics"
	"github.com/lex00/logexport-aws-go/internal/naming"
	"github.com/lex00/logexport-aws-go/resources/s3"
)

// BucketProvisioner builds the managed archive bucket.
type BucketProvisioner interface {
	// Provision returns a bucket named name, emitted under
	// naming.ArchiveBucketID.
	Provision(name string) ProvisionedBucket
}

// ProvisionedBucket is the result of a BucketProvisioner.
type ProvisionedBucket struct {
	Bucket s3.Bucket
	// PolicyStatements are merged into the archive bucket's single policy.
	PolicyStatements []intrinsics.PolicyStatement
	// Supporting resources such as an access log bucket.
	Supporting []Component
}

// SecureBucketProvisioner provisions an encrypted, versioned, private bucket
// whose server access logs go to a companion "-access" bucket.
type SecureBucketProvisioner struct {
	// RetentionDays expires current objects after this many days. Zero keeps them.
	RetentionDays int
	Tags          map[string]string
}

// Provision implements BucketProvisioner.
func (p SecureBucketProvisioner) Provision(name string) ProvisionedBucket {
	accessName := name + "-access"
	tags := intrinsics.Tags(p.Tags)

	bucket := secureBucket(name, "BucketOwnerPreferred", tags)
	bucket.LoggingConfiguration = &s3.Bucket_LoggingConfiguration{
		DestinationBucketName: intrinsics.Ref{LogicalName: naming.AccessLogBucketID},
		LogFilePrefix:         name + "/",
	}
	bucket.LifecycleConfiguration = lifecycle(p.RetentionDays)

	accessBucket := secureBucket(accessName, "BucketOwnerEnforced", tags)
	accessBucket.LifecycleConfiguration = lifecycle(p.RetentionDays)

	accessArn := intrinsics.Sub{String: "${" + naming.AccessLogBucketID + ".Arn}"}
	accessObjects := intrinsics.Sub{String: "${" + naming.AccessLogBucketID + ".Arn}/*"}

	accessPolicy := intrinsics.NewPolicyDocument(
		intrinsics.PolicyStatement{
			Sid:       "AllowServerAccessLogs",
			Effect:    intrinsics.Allow,
			Principal: intrinsics.ServicePrincipal{"logging.s3.amazonaws.com"},
			Action:    "s3:PutObject",
			Resource:  accessObjects,
			Condition: intrinsics.Json{
				intrinsics.ArnLike:      intrinsics.Json{"aws:SourceArn": intrinsics.Sub{String: "arn:${AWS::Partition}:s3:::" + name}},
				intrinsics.StringEquals: intrinsics.Json{"aws:SourceAccount": intrinsics.Sub{String: "${AWS::AccountId}"}},
			},
		},
		denyInsecureTransport(accessArn, accessObjects),
	)

	return ProvisionedBucket{
		Bucket: bucket,
		PolicyStatements: []intrinsics.PolicyStatement{
			denyInsecureTransport(
				intrinsics.Sub{String: "${" + naming.ArchiveBucketID + ".Arn}"},
				intrinsics.Sub{String: "${" + naming.ArchiveBucketID + ".Arn}/*"},
			),
		},
		Supporting: []Component{
			{LogicalID: naming.AccessLogBucketID, Resource: accessBucket},
			{
				LogicalID: naming.AccessLogPolicyID,
				Resource: s3.BucketPolicy{
					Bucket:         intrinsics.Ref{LogicalName: naming.AccessLogBucketID},
					PolicyDocument: accessPolicy,
				},
			},
		},
	}
}

func secureBucket(name, ownership string, tags []intrinsics.Tag) s3.Bucket {
	return s3.Bucket{
		BucketName: name,
		BucketEncryption: &s3.Bucket_BucketEncryption{
			ServerSideEncryptionConfiguration: []s3.Bucket_ServerSideEncryptionRule{{
				ServerSideEncryptionByDefault: &s3.Bucket_ServerSideEncryptionByDefault{SSEAlgorithm: "AES256"},
			}},
		},
		PublicAccessBlockConfiguration: &s3.Bucket_PublicAccessBlockConfiguration{
			BlockPublicAcls:       true,
			BlockPublicPolicy:     true,
			IgnorePublicAcls:      true,
			RestrictPublicBuckets: true,
		},
		OwnershipControls: &s3.Bucket_OwnershipControls{
			Rules: []s3.Bucket_OwnershipControlsRule{{ObjectOwnership: ownership}},
		},
		VersioningConfiguration: &s3.Bucket_VersioningConfiguration{Status: "Enabled"},
		Tags:                    tags,
	}
}

func lifecycle(days int) *s3.Bucket_LifecycleConfiguration {
	if days <= 0 {
		return nil
	}
	return &s3.Bucket_LifecycleConfiguration{
		Rules: []s3.Bucket_Rule{{
			Id:                          "expire-exports",
			Status:                      "Enabled",
			ExpirationInDays:            days,
			NoncurrentVersionExpiration: &s3.Bucket_NoncurrentVersionExpiration{NoncurrentDays: 1},
		}},
	}
}

// denyInsecureTransport rejects every request made without TLS.
func denyInsecureTransport(bucketArn, objectArn any) intrinsics.PolicyStatement {
	return intrinsics.PolicyStatement{
		Sid:       "DenyInsecureTransport",
		Effect:    intrinsics.Deny,
		Principal: intrinsics.AWSPrincipal{intrinsics.AllPrincipal},
		Action:    "s3:*",
		Resource:  intrinsics.Any(bucketArn, objectArn),
		Condition: intrinsics.Json{
			intrinsics.Bool: intrinsics.Json{"aws:SecureTransport": "false"},
		},
	}
}
