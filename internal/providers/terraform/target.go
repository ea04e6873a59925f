// Package terraform scans a Terraform configuration offline for the IAM and
// S3 bucket policy documents it declares.
package terraform

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/credentials"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/engine"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rulepacks/identity"
)

// Target is the engine.Target for one Terraform configuration directory.
type Target struct {
	creds  credentials.Terraform
	logger zerolog.Logger
}

// NewTarget returns a Target for creds. A nil logger discards output.
func NewTarget(creds credentials.Terraform, logger *zerolog.Logger) *Target {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Target{creds: creds, logger: l}
}

func (t *Target) Provider() models.Provider { return models.ProviderTerraform }

// Connect checks that the directory is readable. The account identity is
// the configured deployment account, which may be empty.
func (t *Target) Connect(context.Context) (*engine.Connection, error) {
	if err := t.creds.Validate(); err != nil {
		return nil, err
	}
	return &engine.Connection{
		AccountID: t.creds.AccountID,
		Sources: []engine.KindSource{
			{Source: newPolicySource(t.creds.Dir, t.logger), Pack: identity.New()},
		},
	}, nil
}
