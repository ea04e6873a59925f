// Package gcp adapts Google Cloud project IAM and Cloud Storage bucket IAM
// policies to the scanner.
package gcp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	crm "google.golang.org/api/cloudresourcemanager/v1"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/credentials"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/engine"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rulepacks/identity"
	storagepack "github.com/pankaj-dahiya-devops/lock-and-key/internal/rulepacks/storage"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/version"
)

// scopes are the read-only OAuth scopes the scan needs.
var scopes = []string{
	crm.CloudPlatformReadOnlyScope,
	storage.DevstorageReadOnlyScope,
}

// findDefaultCredentials resolves application default credentials.
// Replaced in tests.
var findDefaultCredentials = google.FindDefaultCredentials

// Target is the engine.Target for one GCP project.
type Target struct {
	creds   credentials.GCP
	factory clientFactory
}

// NewTarget returns a Target wired to the production Google API clients.
func NewTarget(creds credentials.GCP) *Target {
	return &Target{creds: creds, factory: newDefaultClients}
}

// NewTargetWithFactory returns a Target that uses the supplied factory.
func NewTargetWithFactory(creds credentials.GCP, f clientFactory) *Target {
	return &Target{creds: creds, factory: f}
}

func (t *Target) Provider() models.Provider { return models.ProviderGCP }

// Connect validates the credentials and builds the API clients. The
// project ID is the account identity; sources are ordered project IAM,
// then buckets.
func (t *Target) Connect(ctx context.Context) (*engine.Connection, error) {
	if err := t.creds.Validate(); err != nil {
		return nil, err
	}
	opts, err := clientOptions(ctx, t.creds)
	if err != nil {
		return nil, err
	}
	clients, err := t.factory(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to GCP: %w", err)
	}

	project := t.creds.ProjectID
	return &engine.Connection{
		AccountID: project,
		Sources: []engine.KindSource{
			{Source: &projectSource{client: clients.Projects, projectID: project}, Pack: identity.New()},
			{Source: &bucketSource{client: clients.Buckets, projectID: project}, Pack: storagepack.New()},
		},
	}, nil
}

// clientOptions picks a key file, inline key JSON or application default
// credentials, in that order.
func clientOptions(ctx context.Context, c credentials.GCP) ([]option.ClientOption, error) {
	ua := option.WithUserAgent(version.UserAgent())
	switch {
	case c.CredentialsFile != "":
		return []option.ClientOption{ua, option.WithCredentialsFile(c.CredentialsFile), option.WithScopes(scopes...)}, nil
	case len(c.CredentialsJSON) > 0:
		return []option.ClientOption{ua, option.WithCredentialsJSON(c.CredentialsJSON), option.WithScopes(scopes...)}, nil
	}
	adc, err := findDefaultCredentials(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("gcp: application default credentials: %w: %w", err, credentials.ErrCredentialsUnavailable)
	}
	return []option.ClientOption{ua, option.WithCredentials(adc)}, nil
}
