package scanner

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rules"
)

// Options tunes a Scanner. The zero value scans sequentially with no filter
// and no logging.
type Options struct {
	// Concurrency bounds in-flight policy fetches. Values below 2 scan
	// sequentially.
	Concurrency int

	// Filter drops resources by name before their policy is fetched.
	Filter Filter

	// Logger receives per-resource debug lines and failure warnings.
	Logger *zerolog.Logger

	// OnResource, when set, is called once for every resource whose policy
	// was fetched (successfully or not). It must be safe for concurrent use.
	OnResource func(res models.Resource)
}

// Scanner produces the ordered findings for one resource kind.
type Scanner struct {
	source   Source
	registry rules.RuleRegistry
	opts     Options
	logger   zerolog.Logger
}

// New returns a Scanner that evaluates source's policies with registry.
func New(source Source, registry rules.RuleRegistry, opts Options) *Scanner {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Scanner{
		source:   source,
		registry: registry,
		opts:     opts,
		logger:   logger.With().Str("kind", string(source.Kind())).Logger(),
	}
}

// Kind returns the resource kind of the underlying source.
func (s *Scanner) Kind() models.ResourceKind { return s.source.Kind() }

// Scan lists every resource, evaluates each one's policy against accountID and
// returns the findings in listing order. It never fails: a listing failure
// yields exactly one access-error finding for the whole collection.
func (s *Scanner) Scan(ctx context.Context, accountID string) []models.Finding {
	msgs := s.source.Messages()

	resources, err := s.source.ListResources(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("listing failed")
		return []models.Finding{rules.ListingErrorFinding(
			s.source.CollectionName(), s.source.Kind(),
			msgs.ListDescription, msgs.ListRecommendation,
		)}
	}

	selected := resources[:0:0]
	for _, res := range resources {
		if !s.opts.Filter.Allowed(res.Name) {
			s.logger.Debug().Str("resource", res.Name).Msg("filtered out")
			continue
		}
		selected = append(selected, res)
	}
	s.logger.Debug().Int("listed", len(resources)).Int("selected", len(selected)).Msg("resources listed")

	// One slot per resource keeps output order independent of completion order.
	slots := make([][]models.Finding, len(selected))

	if s.opts.Concurrency < 2 {
		for i, res := range selected {
			slots[i] = s.scanResource(ctx, res, accountID)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.opts.Concurrency)
		for i, res := range selected {
			g.Go(func() error {
				slots[i] = s.scanResource(ctx, res, accountID)
				return nil
			})
		}
		_ = g.Wait()
	}

	var findings []models.Finding
	for _, slot := range slots {
		findings = append(findings, slot...)
	}
	return findings
}

// scanResource fetches, parses and evaluates one resource's policy.
func (s *Scanner) scanResource(ctx context.Context, res models.Resource, accountID string) []models.Finding {
	if s.opts.OnResource != nil {
		defer s.opts.OnResource(res)
	}
	log := s.logger.With().Str("resource", res.Name).Logger()
	msgs := s.source.Messages()

	doc, err := s.source.FetchPolicy(ctx, res)
	if errors.Is(err, ErrNoPolicy) {
		log.Debug().Msg("no policy attached")
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("fetch policy failed")
		return []models.Finding{rules.FetchErrorFinding(res, msgs.FetchDescription, msgs.FetchRecommendation)}
	}

	statements, err := doc.Statements()
	if err != nil {
		log.Warn().Err(err).Msg("parse policy failed")
		return []models.Finding{rules.FetchErrorFinding(res, msgs.FetchDescription, msgs.FetchRecommendation)}
	}

	var findings []models.Finding
	for i, stmt := range statements {
		findings = append(findings, s.registry.EvaluateAll(rules.RuleContext{
			Statement:      stmt,
			StatementIndex: i,
			AccountID:      accountID,
			Resource:       res,
		})...)
	}
	log.Debug().Int("statements", len(statements)).Int("findings", len(findings)).Msg("policy evaluated")
	return findings
}
