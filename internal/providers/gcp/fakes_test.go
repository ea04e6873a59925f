package gcp

import (
	"context"

	"google.golang.org/api/option"
)

type fakeProjects struct {
	bindings []binding
	err      error
}

func (f fakeProjects) GetProjectIAMPolicy(context.Context, string) ([]binding, error) {
	return f.bindings, f.err
}

type fakeBuckets struct {
	names    []string
	listErr  error
	policies map[string][]binding
	errs     map[string]error
}

func (f fakeBuckets) ListBuckets(context.Context, string) ([]string, error) {
	return f.names, f.listErr
}

func (f fakeBuckets) GetBucketIAMPolicy(_ context.Context, bucket string) ([]binding, error) {
	if err := f.errs[bucket]; err != nil {
		return nil, err
	}
	return f.policies[bucket], nil
}

func fakeFactory(p projectAPI, b bucketAPI) clientFactory {
	return func(context.Context, ...option.ClientOption) (*gcpClients, error) {
		return &gcpClients{Projects: p, Buckets: b}, nil
	}
}
