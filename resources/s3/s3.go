// Package s3 provides the AWS::S3 resource types used by the log archive.
package s3

import (
	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
)

// Bucket represents an AWS::S3::Bucket resource.
type Bucket struct {
	BucketName                     any                                    `json:"BucketName,omitempty"`
	BucketEncryption               *Bucket_BucketEncryption               `json:"BucketEncryption,omitempty"`
	PublicAccessBlockConfiguration *Bucket_PublicAccessBlockConfiguration `json:"PublicAccessBlockConfiguration,omitempty"`
	OwnershipControls              *Bucket_OwnershipControls              `json:"OwnershipControls,omitempty"`
	VersioningConfiguration        *Bucket_VersioningConfiguration        `json:"VersioningConfiguration,omitempty"`
	LoggingConfiguration           *Bucket_LoggingConfiguration           `json:"LoggingConfiguration,omitempty"`
	LifecycleConfiguration         *Bucket_LifecycleConfiguration         `json:"LifecycleConfiguration,omitempty"`
	Tags                           []intrinsics.Tag                       `json:"Tags,omitempty"`

	// Arn is the GetAtt reference for the bucket ARN.
	Arn logexport.AttrRef `json:"-"`
	// DomainName is the GetAtt reference for the bucket domain name.
	DomainName logexport.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Bucket) ResourceType() string { return "AWS::S3::Bucket" }

// Bucket_BucketEncryption configures default server-side encryption.
type Bucket_BucketEncryption struct {
	ServerSideEncryptionConfiguration []Bucket_ServerSideEncryptionRule `json:"ServerSideEncryptionConfiguration"`
}

// Bucket_ServerSideEncryptionRule is a single default encryption rule.
type Bucket_ServerSideEncryptionRule struct {
	ServerSideEncryptionByDefault *Bucket_ServerSideEncryptionByDefault `json:"ServerSideEncryptionByDefault,omitempty"`
	BucketKeyEnabled              bool                                  `json:"BucketKeyEnabled,omitempty"`
}

// Bucket_ServerSideEncryptionByDefault names the default algorithm.
type Bucket_ServerSideEncryptionByDefault struct {
	SSEAlgorithm   string `json:"SSEAlgorithm"`
	KMSMasterKeyID any    `json:"KMSMasterKeyID,omitempty"`
}

// Bucket_PublicAccessBlockConfiguration blocks public access.
type Bucket_PublicAccessBlockConfiguration struct {
	BlockPublicAcls       bool `json:"BlockPublicAcls,omitempty"`
	BlockPublicPolicy     bool `json:"BlockPublicPolicy,omitempty"`
	IgnorePublicAcls      bool `json:"IgnorePublicAcls,omitempty"`
	RestrictPublicBuckets bool `json:"RestrictPublicBuckets,omitempty"`
}

// Bucket_OwnershipControls sets object ownership.
type Bucket_OwnershipControls struct {
	Rules []Bucket_OwnershipControlsRule `json:"Rules"`
}

// Bucket_OwnershipControlsRule is a single ownership rule.
type Bucket_OwnershipControlsRule struct {
	ObjectOwnership string `json:"ObjectOwnership"`
}

// Bucket_VersioningConfiguration enables or suspends versioning.
type Bucket_VersioningConfiguration struct {
	Status string `json:"Status"`
}

// Bucket_LoggingConfiguration sends server access logs to another bucket.
type Bucket_LoggingConfiguration struct {
	DestinationBucketName any    `json:"DestinationBucketName,omitempty"`
	LogFilePrefix         string `json:"LogFilePrefix,omitempty"`
}

// Bucket_LifecycleConfiguration holds lifecycle rules.
type Bucket_LifecycleConfiguration struct {
	Rules []Bucket_Rule `json:"Rules"`
}

// Bucket_Rule is a single lifecycle rule.
type Bucket_Rule struct {
	Id                          string                              `json:"Id,omitempty"`
	Prefix                      string                              `json:"Prefix,omitempty"`
	Status                      string                              `json:"Status"`
	ExpirationInDays            int                                 `json:"ExpirationInDays,omitempty"`
	NoncurrentVersionExpiration *Bucket_NoncurrentVersionExpiration `json:"NoncurrentVersionExpiration,omitempty"`
}

// Bucket_NoncurrentVersionExpiration expires noncurrent object versions.
type Bucket_NoncurrentVersionExpiration struct {
	NoncurrentDays int `json:"NoncurrentDays"`
}

// BucketPolicy represents an AWS::S3::BucketPolicy resource.
type BucketPolicy struct {
	Bucket         any `json:"Bucket"`
	PolicyDocument any `json:"PolicyDocument"`
}

// ResourceType returns the CloudFormation type.
func (BucketPolicy) ResourceType() string { return "AWS::S3::BucketPolicy" }
