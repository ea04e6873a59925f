// Package awssecurity adapts AWS IAM and S3 to the scanner: IAM role trust
// policies, customer managed policies and S3 bucket policies.
package awssecurity

import (
	"context"
	"fmt"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/credentials"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/engine"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rulepacks/identity"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rulepacks/storage"
)

// Target is the engine.Target for one AWS account.
type Target struct {
	creds    credentials.AWS
	provider common.AWSClientProvider
	factory  secClientFactory
}

// NewTarget returns a Target wired to production AWS SDK clients.
func NewTarget(creds credentials.AWS, provider common.AWSClientProvider) *Target {
	return &Target{creds: creds, provider: provider, factory: newDefaultSecClients}
}

// NewTargetWithFactory returns a Target that uses the supplied factory,
// allowing tests to inject fake clients.
func NewTargetWithFactory(creds credentials.AWS, provider common.AWSClientProvider, f secClientFactory) *Target {
	return &Target{creds: creds, provider: provider, factory: f}
}

func (t *Target) Provider() models.Provider { return models.ProviderAWS }

// Connect loads credentials, resolves the account ID and returns the sources
// in scan order: IAM roles, IAM managed policies, S3 buckets.
func (t *Target) Connect(ctx context.Context) (*engine.Connection, error) {
	profile, err := t.provider.Load(ctx, t.creds)
	if err != nil {
		return nil, fmt.Errorf("connect to AWS: %w", err)
	}
	clients := t.factory(profile.Config)

	return &engine.Connection{
		AccountID: profile.AccountID,
		Sources: []engine.KindSource{
			{Source: newRoleSource(clients.IAM), Pack: identity.New()},
			{Source: newManagedPolicySource(clients.IAM), Pack: identity.New()},
			{Source: newBucketSource(profile.Config, t.factory, clients.S3), Pack: storage.New()},
		},
	}, nil
}
