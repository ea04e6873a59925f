package awssecurity

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/scanner"
)

// ---------------------------------------------------------------------------
// IAM roles: trust policies
// ---------------------------------------------------------------------------

// roleSource lists IAM roles and yields each role's trust policy. ListRoles
// already returns the URL-encoded trust document, so GetRole is only called
// when it is missing.
type roleSource struct {
	client iamAPIClient

	mu    sync.Mutex
	trust map[string]string // role ARN → URL-encoded trust policy
}

func newRoleSource(client iamAPIClient) *roleSource {
	return &roleSource{client: client, trust: make(map[string]string)}
}

func (s *roleSource) Kind() models.ResourceKind { return models.KindAWSIAMRole }
func (s *roleSource) CollectionName() string    { return "IAM Roles" }

func (s *roleSource) Messages() scanner.Messages {
	return scanner.Messages{
		ListDescription:     "Failed to list IAM roles",
		ListRecommendation:  "Ensure IAM permissions allow role listing (iam:ListRoles)",
		FetchDescription:    "Failed to retrieve trust policy",
		FetchRecommendation: "Ensure IAM permissions allow role access (iam:GetRole)",
	}
}

func (s *roleSource) ListResources(ctx context.Context) ([]models.Resource, error) {
	paginator := iamsvc.NewListRolesPaginator(s.client, &iamsvc.ListRolesInput{})
	var resources []models.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &scanner.ListingError{Kind: s.Kind(), Code: errorCode(err), Err: err}
		}
		for _, r := range page.Roles {
			res := roleResource(r)
			s.mu.Lock()
			s.trust[res.ID] = aws.ToString(r.AssumeRolePolicyDocument)
			s.mu.Unlock()
			resources = append(resources, res)
		}
	}
	return resources, nil
}

func (s *roleSource) FetchPolicy(ctx context.Context, res models.Resource) (policydoc.Document, error) {
	s.mu.Lock()
	doc := s.trust[res.ID]
	s.mu.Unlock()
	if doc != "" {
		return policydoc.URLEncoded(doc), nil
	}

	out, err := s.client.GetRole(ctx, &iamsvc.GetRoleInput{RoleName: aws.String(res.Name)})
	if err != nil {
		code := errorCode(err)
		if code == codeNoSuchEntity {
			return nil, scanner.ErrNoPolicy
		}
		return nil, &scanner.FetchError{Resource: res, Code: code, Err: err}
	}
	if out.Role == nil || aws.ToString(out.Role.AssumeRolePolicyDocument) == "" {
		return nil, scanner.ErrNoPolicy
	}
	return policydoc.URLEncoded(aws.ToString(out.Role.AssumeRolePolicyDocument)), nil
}

func roleResource(r iamtypes.Role) models.Resource {
	return models.Resource{
		Name: aws.ToString(r.RoleName),
		ID:   aws.ToString(r.Arn),
		Kind: models.KindAWSIAMRole,
	}
}

// ---------------------------------------------------------------------------
// IAM customer managed policies
// ---------------------------------------------------------------------------

// managedPolicySource lists customer managed policies (Scope=Local) and
// fetches each policy's default version document.
type managedPolicySource struct {
	client iamAPIClient

	mu       sync.Mutex
	versions map[string]string // policy ARN → default version ID
}

func newManagedPolicySource(client iamAPIClient) *managedPolicySource {
	return &managedPolicySource{client: client, versions: make(map[string]string)}
}

func (s *managedPolicySource) Kind() models.ResourceKind { return models.KindAWSIAMManagedPolicy }
func (s *managedPolicySource) CollectionName() string    { return "IAM Managed Policies" }

func (s *managedPolicySource) Messages() scanner.Messages {
	return scanner.Messages{
		ListDescription:     "Failed to list IAM policies",
		ListRecommendation:  "Ensure IAM permissions allow policy listing (iam:ListPolicies)",
		FetchDescription:    "Failed to retrieve policy",
		FetchRecommendation: "Ensure IAM permissions allow policy access (iam:GetPolicyVersion)",
	}
}

func (s *managedPolicySource) ListResources(ctx context.Context) ([]models.Resource, error) {
	paginator := iamsvc.NewListPoliciesPaginator(s.client, &iamsvc.ListPoliciesInput{
		Scope: iamtypes.PolicyScopeTypeLocal,
	})
	var resources []models.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &scanner.ListingError{Kind: s.Kind(), Code: errorCode(err), Err: err}
		}
		for _, p := range page.Policies {
			res := models.Resource{
				Name: aws.ToString(p.PolicyName),
				ID:   aws.ToString(p.Arn),
				Kind: models.KindAWSIAMManagedPolicy,
			}
			s.mu.Lock()
			s.versions[res.ID] = aws.ToString(p.DefaultVersionId)
			s.mu.Unlock()
			resources = append(resources, res)
		}
	}
	return resources, nil
}

func (s *managedPolicySource) FetchPolicy(ctx context.Context, res models.Resource) (policydoc.Document, error) {
	s.mu.Lock()
	version := s.versions[res.ID]
	s.mu.Unlock()
	if version == "" {
		return nil, scanner.ErrNoPolicy
	}

	out, err := s.client.GetPolicyVersion(ctx, &iamsvc.GetPolicyVersionInput{
		PolicyArn: aws.String(res.ID),
		VersionId: aws.String(version),
	})
	if err != nil {
		code := errorCode(err)
		if code == codeNoSuchEntity {
			return nil, scanner.ErrNoPolicy
		}
		return nil, &scanner.FetchError{Resource: res, Code: code, Err: err}
	}
	if out.PolicyVersion == nil || aws.ToString(out.PolicyVersion.Document) == "" {
		return nil, scanner.ErrNoPolicy
	}
	return policydoc.URLEncoded(aws.ToString(out.PolicyVersion.Document)), nil
}
