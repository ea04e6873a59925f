package gcp

import (
	"context"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/scanner"
)

// ── project IAM ───────────────────────────────────────────────────────────────

// projectSource yields a single resource: the project and its IAM policy.
type projectSource struct {
	client    projectAPI
	projectID string
}

func (s *projectSource) Kind() models.ResourceKind { return models.KindGCPProject }
func (s *projectSource) CollectionName() string    { return "GCP Project IAM" }

func (s *projectSource) Messages() scanner.Messages {
	return scanner.Messages{
		ListDescription:     "Failed to read project",
		ListRecommendation:  "Ensure the project ID is correct",
		FetchDescription:    "Failed to retrieve project IAM policy",
		FetchRecommendation: "Ensure IAM permissions allow resourcemanager.projects.getIamPolicy",
	}
}

func (s *projectSource) ListResources(context.Context) ([]models.Resource, error) {
	return []models.Resource{{
		Name: s.projectID,
		ID:   "//cloudresourcemanager.googleapis.com/projects/" + s.projectID,
		Kind: models.KindGCPProject,
	}}, nil
}

func (s *projectSource) FetchPolicy(ctx context.Context, res models.Resource) (policydoc.Document, error) {
	bindings, err := s.client.GetProjectIAMPolicy(ctx, res.Name)
	if err != nil {
		return nil, &scanner.FetchError{Resource: res, Code: errorCode(err), Err: err}
	}
	if len(bindings) == 0 {
		return nil, scanner.ErrNoPolicy
	}
	return projectStatements(bindings, res.Name), nil
}

// ── Cloud Storage buckets ─────────────────────────────────────────────────────

// bucketSource lists the project's buckets and yields each bucket IAM policy.
type bucketSource struct {
	client    bucketAPI
	projectID string
}

func (s *bucketSource) Kind() models.ResourceKind { return models.KindGCSBucket }
func (s *bucketSource) CollectionName() string    { return "GCS Buckets" }

func (s *bucketSource) Messages() scanner.Messages {
	return scanner.Messages{
		ListDescription:     "Failed to list GCS buckets",
		ListRecommendation:  "Ensure IAM permissions allow storage.buckets.list",
		FetchDescription:    "Failed to retrieve policy",
		FetchRecommendation: "Ensure IAM permissions allow storage.buckets.getIamPolicy",
	}
}

func (s *bucketSource) ListResources(ctx context.Context) ([]models.Resource, error) {
	names, err := s.client.ListBuckets(ctx, s.projectID)
	if err != nil {
		return nil, &scanner.ListingError{Kind: s.Kind(), Code: errorCode(err), Err: err}
	}
	resources := make([]models.Resource, 0, len(names))
	for _, name := range names {
		resources = append(resources, models.Resource{
			Name: name,
			ID:   "//storage.googleapis.com/projects/_/buckets/" + name,
			Kind: models.KindGCSBucket,
		})
	}
	return resources, nil
}

// FetchPolicy returns the bucket's bindings as statements. A bucket deleted
// between listing and fetch has no policy.
func (s *bucketSource) FetchPolicy(ctx context.Context, res models.Resource) (policydoc.Document, error) {
	bindings, err := s.client.GetBucketIAMPolicy(ctx, res.Name)
	if err != nil {
		if isNotFound(err) {
			return nil, scanner.ErrNoPolicy
		}
		return nil, &scanner.FetchError{Resource: res, Code: errorCode(err), Err: err}
	}
	if len(bindings) == 0 {
		return nil, scanner.ErrNoPolicy
	}
	return bucketStatements(bindings, res.Name), nil
}
