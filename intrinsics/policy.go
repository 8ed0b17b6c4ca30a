// Package intrinsics provides CloudFormation intrinsic functions.
// This file contains IAM policy document types and helpers.
package intrinsics

import (
	"encoding/json"
)

// PolicyVersion is the IAM policy language version used by every document.
const PolicyVersion = "2012-10-17"

// Statement effects.
const (
	Allow = "Allow"
	Deny  = "Deny"
)

// Json is a shorthand for map[string]any.
// Used for inline JSON objects like Condition blocks.
//
// Example:
//
//	Condition: Json{
//	    Bool: Json{"aws:SecureTransport": false},
//	}
type Json = map[string]any

// Any creates a []any slice from the given items.
// Use for fields typed as []any that accept mixed types or intrinsics.
//
// Example:
//
//	Resource: Any(bucketArn, Sub{String: "${Arn}/*"}),
func Any(items ...any) []any {
	return items
}

// PolicyDocument represents an IAM policy document.
//
// Example:
//
//	var TrustPolicy = PolicyDocument{
//	    Version:   "2012-10-17",
//	    Statement: []any{AssumeStatement},
//	}
type PolicyDocument struct {
	Version   string `json:"Version,omitempty"`
	Statement []any  `json:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the default version.
func NewPolicyDocument(statements ...PolicyStatement) PolicyDocument {
	doc := PolicyDocument{Version: PolicyVersion, Statement: []any{}}
	for _, s := range statements {
		doc.Statement = append(doc.Statement, s)
	}
	return doc
}

// Statements returns the typed statements of the document, skipping any
// entries that are not PolicyStatement values.
func (d PolicyDocument) Statements() []PolicyStatement {
	var out []PolicyStatement
	for _, s := range d.Statement {
		if ps, ok := s.(PolicyStatement); ok {
			out = append(out, ps)
		}
	}
	return out
}

// PolicyStatement represents an IAM policy statement.
//
// Example:
//
//	var AssumeStatement = PolicyStatement{
//	    Effect:    "Allow",
//	    Principal: ServicePrincipal{"lambda.amazonaws.com"},
//	    Action:    "sts:AssumeRole",
//	}
type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
	Condition Json   `json:"Condition,omitempty"`
}

// AssumeRoleStatement returns the trust statement letting the given service
// principals assume a role.
func AssumeRoleStatement(services ...any) PolicyStatement {
	return PolicyStatement{
		Effect:    Allow,
		Principal: ServicePrincipal(services),
		Action:    "sts:AssumeRole",
	}
}

// --- Principal Helpers ---

// ServicePrincipal represents a service principal (e.g., lambda.amazonaws.com).
// Serializes to {"Service": ...} format.
//
// Examples:
//
//	ServicePrincipal{"scheduler.amazonaws.com"}
//	ServicePrincipal{Sub{String: "logs.${AWS::Region}.amazonaws.com"}}
type ServicePrincipal []any

// MarshalJSON serializes to {"Service": ...} format.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"Service": p[0]})
	}
	return json.Marshal(map[string]any{"Service": []any(p)})
}

// AWSPrincipal represents an AWS account/role/user principal.
// Serializes to {"AWS": ...} format.
//
// Examples:
//
//	AWSPrincipal{"arn:aws:iam::123456789:root"}
//	AWSPrincipal{"*"}
type AWSPrincipal []any

// MarshalJSON serializes to {"AWS": ...} format.
func (p AWSPrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"AWS": p[0]})
	}
	return json.Marshal(map[string]any{"AWS": []any(p)})
}

// AllPrincipal represents the wildcard principal "*".
const AllPrincipal = "*"

// --- IAM Condition Operator Constants ---
//
// Example:
//
//	Condition: Json{
//	    Bool: Json{"aws:SecureTransport": false},
//	    StringEquals: Json{"s3:x-amz-acl": "bucket-owner-full-control"},
//	}

const (
	StringEquals = "StringEquals"
	StringLike   = "StringLike"
	ArnLike      = "ArnLike"
	Bool         = "Bool"
)
