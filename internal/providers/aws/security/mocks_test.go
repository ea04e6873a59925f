package awssecurity

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/mock"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/credentials"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/providers/aws/common"
)

// MockIAMClient is a testify mock for iamAPIClient.
type MockIAMClient struct {
	mock.Mock
}

func (m *MockIAMClient) ListRoles(ctx context.Context, input *iamsvc.ListRolesInput, opts ...func(*iamsvc.Options)) (*iamsvc.ListRolesOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*iamsvc.ListRolesOutput)
	return out, args.Error(1)
}

func (m *MockIAMClient) ListPolicies(ctx context.Context, input *iamsvc.ListPoliciesInput, opts ...func(*iamsvc.Options)) (*iamsvc.ListPoliciesOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*iamsvc.ListPoliciesOutput)
	return out, args.Error(1)
}

func (m *MockIAMClient) GetRole(ctx context.Context, input *iamsvc.GetRoleInput, opts ...func(*iamsvc.Options)) (*iamsvc.GetRoleOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*iamsvc.GetRoleOutput)
	return out, args.Error(1)
}

func (m *MockIAMClient) GetPolicyVersion(ctx context.Context, input *iamsvc.GetPolicyVersionInput, opts ...func(*iamsvc.Options)) (*iamsvc.GetPolicyVersionOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*iamsvc.GetPolicyVersionOutput)
	return out, args.Error(1)
}

// MockS3Client is a testify mock for s3APIClient.
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) ListBuckets(ctx context.Context, input *s3svc.ListBucketsInput, opts ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*s3svc.ListBucketsOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) GetBucketPolicy(ctx context.Context, input *s3svc.GetBucketPolicyInput, opts ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*s3svc.GetBucketPolicyOutput)
	return out, args.Error(1)
}

// fakeProvider satisfies common.AWSClientProvider without touching AWS.
type fakeProvider struct {
	account string
	region  string
	err     error
}

func (f fakeProvider) Load(context.Context, credentials.AWS) (*common.ProfileConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &common.ProfileConfig{
		ProfileName: "test",
		AccountID:   f.account,
		Region:      f.region,
		Config:      aws.Config{Region: f.region},
	}, nil
}

func (f fakeProvider) ListProfiles() ([]string, error) { return []string{"test"}, nil }

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}
