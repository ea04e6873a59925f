package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/credentials"
)

// ProfileConfig is a resolved AWS identity with its SDK configuration and
// initialised service clients. It is the unit passed between provider
// functions and into the scan target.
type ProfileConfig struct {
	// ProfileName is the shared-config profile, "default", or "static" when
	// explicit access keys were supplied.
	ProfileName string

	// AccountID is the resolved AWS account ID (via STS).
	AccountID string

	// Region is the home region of the configuration.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds the clients used to resolve the identity.
	Clients *ClientSet
}

// AWSClientProvider loads AWS configurations. It is the sole entry point for
// AWS credential management across the provider layer.
//
// Implementations must use the AWS SDK v2 only. Never call the aws CLI.
type AWSClientProvider interface {
	// Load returns a ProfileConfig for creds. Zero-value creds use the SDK
	// default credential chain.
	Load(ctx context.Context, creds credentials.AWS) (*ProfileConfig, error)

	// ListProfiles returns every profile name found in the shared config
	// and credentials files.
	ListProfiles() ([]string, error)
}
