// Package iam provides the AWS::IAM resource types used by the log archive.
package iam

import (
	logexport "github.com/lex00/logexport-aws-go"
	"github.com/lex00/logexport-aws-go/intrinsics"
)

// Role represents an AWS::IAM::Role resource.
type Role struct {
	RoleName                 any              `json:"RoleName,omitempty"`
	Description              string           `json:"Description,omitempty"`
	AssumeRolePolicyDocument any              `json:"AssumeRolePolicyDocument"`
	ManagedPolicyArns        []any            `json:"ManagedPolicyArns,omitempty"`
	Policies                 []Role_Policy    `json:"Policies,omitempty"`
	MaxSessionDuration       int              `json:"MaxSessionDuration,omitempty"`
	Tags                     []intrinsics.Tag `json:"Tags,omitempty"`

	// Arn is the GetAtt reference for the role ARN.
	Arn logexport.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Role) ResourceType() string { return "AWS::IAM::Role" }

// Role_Policy is an inline policy embedded in a role.
type Role_Policy struct {
	PolicyName     string `json:"PolicyName"`
	PolicyDocument any    `json:"PolicyDocument"`
}

// Statements returns the typed statements of every inline policy of the role.
func (r Role) Statements() []intrinsics.PolicyStatement {
	var out []intrinsics.PolicyStatement
	for _, p := range r.Policies {
		if doc, ok := p.PolicyDocument.(intrinsics.PolicyDocument); ok {
			out = append(out, doc.Statements()...)
		}
	}
	return out
}
