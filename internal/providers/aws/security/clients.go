package awssecurity

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3APIClient is the narrow S3 interface used by the bucket source. It embeds
// ListBucketsAPIClient so the SDK paginator can be used directly.
type s3APIClient interface {
	s3svc.ListBucketsAPIClient
	GetBucketPolicy(ctx context.Context, params *s3svc.GetBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error)
}

// iamAPIClient is the narrow IAM interface used by the role and managed
// policy sources. It embeds the list interfaces for the SDK paginators.
type iamAPIClient interface {
	iamsvc.ListRolesAPIClient
	iamsvc.ListPoliciesAPIClient
	GetRole(ctx context.Context, params *iamsvc.GetRoleInput, optFns ...func(*iamsvc.Options)) (*iamsvc.GetRoleOutput, error)
	GetPolicyVersion(ctx context.Context, params *iamsvc.GetPolicyVersionInput, optFns ...func(*iamsvc.Options)) (*iamsvc.GetPolicyVersionOutput, error)
}

// secClients bundles the AWS service clients used by the policy sources.
type secClients struct {
	S3  s3APIClient
	IAM iamAPIClient
}

// secClientFactory creates secClients from an AWS config.
// Injection point: tests replace this with a function returning fake clients.
type secClientFactory func(cfg aws.Config) *secClients

// newDefaultSecClients creates production AWS SDK clients from the given config.
func newDefaultSecClients(cfg aws.Config) *secClients {
	return &secClients{
		S3:  s3svc.NewFromConfig(cfg),
		IAM: iamsvc.NewFromConfig(cfg),
	}
}
