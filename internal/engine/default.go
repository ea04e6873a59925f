package engine

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/metrics"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policy"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rules"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/scanner"
)

// Options configures a DefaultEngine. The zero value is usable.
type Options struct {
	// ReportDir is the directory in which report paths are built.
	ReportDir string

	// Concurrency bounds parallel policy fetches within one resource kind.
	Concurrency int

	// Filter selects resources by name in every kind.
	Filter scanner.Filter

	// Policy applies lk.yaml overrides before aggregation. May be nil.
	Policy *policy.PolicyConfig

	// Metrics, when set, counts resources, findings and failures.
	Metrics *metrics.Recorder

	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// DefaultEngine scans every resource kind of a target concurrently and
// aggregates the findings into one ScanResult.
type DefaultEngine struct {
	opts   Options
	logger zerolog.Logger
}

// NewDefaultEngine returns an engine configured by opts.
func NewDefaultEngine(opts Options) *DefaultEngine {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &DefaultEngine{opts: opts, logger: logger}
}

// Scan implements Engine.
func (e *DefaultEngine) Scan(ctx context.Context, target Target) models.ScanResult {
	provider := target.Provider()
	log := e.logger.With().Str("provider", string(provider)).Logger()

	conn, err := target.Connect(ctx)
	if err == nil && conn == nil {
		err = errors.New("no connection")
	}
	if err != nil {
		log.Warn().Err(err).Msg("provider unreachable")
		result := FailedScanResult(provider, err)
		e.opts.Metrics.RecordResult(result)
		return result
	}
	log = log.With().Str("account", conn.AccountID).Logger()
	log.Info().Int("kinds", len(conn.Sources)).Msg("scan started")

	findings := e.scanKinds(ctx, provider, conn, log)
	findings = policy.ApplyPolicy(findings, policy.DomainFor(provider), e.opts.Policy)

	result := BuildScanResult(provider, conn.AccountID, findings, e.opts.ReportDir)
	e.opts.Metrics.RecordResult(result)
	log.Info().Int("issues", result.IssuesFound).Msg("scan finished")
	return result
}

// scanKinds runs one scanner per kind in parallel and concatenates their
// findings in source order.
func (e *DefaultEngine) scanKinds(ctx context.Context, provider models.Provider, conn *Connection, log zerolog.Logger) []models.Finding {
	slots := make([][]models.Finding, len(conn.Sources))

	var g errgroup.Group
	for i, ks := range conn.Sources {
		sc := scanner.New(ks.Source, rules.NewRegistryFromPack(ks.Pack), scanner.Options{
			Concurrency: e.opts.Concurrency,
			Filter:      e.opts.Filter,
			Logger:      &log,
			OnResource: func(res models.Resource) {
				e.opts.Metrics.RecordResource(provider, res.Kind)
			},
		})
		g.Go(func() error {
			slots[i] = sc.Scan(ctx, conn.AccountID)
			return nil
		})
	}
	_ = g.Wait() // scanners never return errors

	var findings []models.Finding
	for _, slot := range slots {
		findings = append(findings, slot...)
	}
	return findings
}
