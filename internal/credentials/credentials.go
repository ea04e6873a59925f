// Package credentials holds the typed, per-provider credential values that the
// CLI resolves once and hands to a provider target.
package credentials

import (
	"errors"
	"fmt"
	"os"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
)

// ErrCredentialsUnavailable reports that no usable credentials could be
// found for a provider. Engines turn it into a failed scan result.
var ErrCredentialsUnavailable = errors.New("credentials unavailable")

// Credentials is implemented only by the provider structs in this package.
type Credentials interface {
	Provider() models.Provider
	Validate() error
	isCredentials()
}

// AWS selects a shared-config profile or static access keys. With neither
// set, the SDK default chain (env, shared config, instance role) is used.
type AWS struct {
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
}

func (AWS) Provider() models.Provider { return models.ProviderAWS }
func (AWS) isCredentials()            {}

// Static reports whether explicit access keys were supplied.
func (c AWS) Static() bool { return c.AccessKeyID != "" || c.SecretAccessKey != "" }

func (c AWS) Validate() error {
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("aws: access key ID and secret access key must be set together: %w", ErrCredentialsUnavailable)
	}
	if c.Static() && c.Profile != "" {
		return fmt.Errorf("aws: profile %q conflicts with static access keys", c.Profile)
	}
	return nil
}

// GCP selects a service-account key (file or inline JSON) or, with neither
// set, application default credentials. ProjectID is required.
type GCP struct {
	CredentialsFile string
	CredentialsJSON []byte
	ProjectID       string
}

func (GCP) Provider() models.Provider { return models.ProviderGCP }
func (GCP) isCredentials()            {}

func (c GCP) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("gcp: project ID is required: %w", ErrCredentialsUnavailable)
	}
	if c.CredentialsFile != "" && len(c.CredentialsJSON) > 0 {
		return errors.New("gcp: credentials file and inline credentials are mutually exclusive")
	}
	if c.CredentialsFile != "" {
		if _, err := os.Stat(c.CredentialsFile); err != nil {
			return fmt.Errorf("gcp: credentials file: %w: %w", err, ErrCredentialsUnavailable)
		}
	}
	return nil
}

// Terraform points at a directory of .tf files. AccountID, when set, is the
// account the configuration deploys into; principals outside it are external.
type Terraform struct {
	Dir       string
	AccountID string
}

func (Terraform) Provider() models.Provider { return models.ProviderTerraform }
func (Terraform) isCredentials()            {}

func (c Terraform) Validate() error {
	if c.Dir == "" {
		return errors.New("terraform: directory is required")
	}
	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("terraform: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("terraform: %s is not a directory", c.Dir)
	}
	return nil
}
