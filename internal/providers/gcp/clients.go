package gcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	crm "google.golang.org/api/cloudresourcemanager/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// iamPolicyVersion requests conditional role bindings.
const iamPolicyVersion = 3

// binding is one IAM role binding, independent of the API that returned it.
type binding struct {
	Role      string
	Members   []string
	Condition string // CEL expression, empty when unconditional
}

// projectAPI is the narrow Resource Manager interface used by the project source.
type projectAPI interface {
	GetProjectIAMPolicy(ctx context.Context, projectID string) ([]binding, error)
}

// bucketAPI is the narrow Cloud Storage interface used by the bucket source.
type bucketAPI interface {
	ListBuckets(ctx context.Context, projectID string) ([]string, error)
	GetBucketIAMPolicy(ctx context.Context, bucket string) ([]binding, error)
}

// gcpClients bundles the API clients used by the GCP sources.
type gcpClients struct {
	Projects projectAPI
	Buckets  bucketAPI
}

// clientFactory creates gcpClients from client options.
// Injection point: tests replace this with a function returning fakes.
type clientFactory func(ctx context.Context, opts ...option.ClientOption) (*gcpClients, error)

// newDefaultClients builds production Resource Manager and Storage clients.
func newDefaultClients(ctx context.Context, opts ...option.ClientOption) (*gcpClients, error) {
	crmSvc, err := crm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create resource manager client: %w", err)
	}
	storageSvc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &gcpClients{
		Projects: resourceManager{svc: crmSvc},
		Buckets:  cloudStorage{svc: storageSvc},
	}, nil
}

type resourceManager struct {
	svc *crm.Service
}

func (r resourceManager) GetProjectIAMPolicy(ctx context.Context, projectID string) ([]binding, error) {
	req := &crm.GetIamPolicyRequest{
		Options: &crm.GetPolicyOptions{RequestedPolicyVersion: iamPolicyVersion},
	}
	p, err := r.svc.Projects.GetIamPolicy(projectID, req).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([]binding, 0, len(p.Bindings))
	for _, b := range p.Bindings {
		out = append(out, binding{Role: b.Role, Members: b.Members, Condition: exprString(b.Condition)})
	}
	return out, nil
}

func exprString(e *crm.Expr) string {
	if e == nil {
		return ""
	}
	return e.Expression
}

type cloudStorage struct {
	svc *storage.Service
}

func (c cloudStorage) ListBuckets(ctx context.Context, projectID string) ([]string, error) {
	var names []string
	err := c.svc.Buckets.List(projectID).Pages(ctx, func(page *storage.Buckets) error {
		for _, b := range page.Items {
			names = append(names, b.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (c cloudStorage) GetBucketIAMPolicy(ctx context.Context, bucket string) ([]binding, error) {
	p, err := c.svc.Buckets.GetIamPolicy(bucket).
		OptionsRequestedPolicyVersion(iamPolicyVersion).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	out := make([]binding, 0, len(p.Bindings))
	for _, b := range p.Bindings {
		cond := ""
		if b.Condition != nil {
			cond = b.Condition.Expression
		}
		out = append(out, binding{Role: b.Role, Members: b.Members, Condition: cond})
	}
	return out, nil
}

// errorCode returns the API reason (e.g. "forbidden") or the HTTP status
// code carried by err, or "".
func errorCode(err error) string {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return ""
	}
	if len(apiErr.Errors) > 0 && apiErr.Errors[0].Reason != "" {
		return apiErr.Errors[0].Reason
	}
	return strconv.Itoa(apiErr.Code)
}

// isNotFound reports whether err is an HTTP 404 from a Google API.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 404
}
