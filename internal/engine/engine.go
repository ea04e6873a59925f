package engine

import (
	"context"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rules"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/scanner"
)

// KindSource pairs one resource source with the rule pack that judges its
// policies.
type KindSource struct {
	Source scanner.Source
	Pack   []rules.Rule
}

// Connection is an authenticated view of one provider account.
type Connection struct {
	// AccountID is the account, project or deployment identity under scan.
	AccountID string

	// Sources are scanned concurrently; their findings are concatenated in
	// this order.
	Sources []KindSource
}

// Target is one provider the engine can scan. Implementations live under
// internal/providers and must not evaluate rules themselves.
type Target interface {
	Provider() models.Provider

	// Connect resolves credentials and the account identity. An error here
	// is terminal for the provider and becomes a failed ScanResult.
	Connect(ctx context.Context) (*Connection, error)
}

// Engine is the central orchestration interface: it turns a Target into a
// fully populated ScanResult. It never returns an error; failures to reach
// the provider are represented by a failed result.
type Engine interface {
	Scan(ctx context.Context, target Target) models.ScanResult
}
