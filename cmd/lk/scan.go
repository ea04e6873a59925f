package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/config"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/credentials"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/engine"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/metrics"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/output"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policy"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/providers/aws/common"
	awssecurity "github.com/pankaj-dahiya-devops/lock-and-key/internal/providers/aws/security"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/providers/gcp"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/providers/terraform"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/scanner"
)

// scanFlags holds the raw flag values of lk scan.
type scanFlags struct {
	interactive bool
	outputDir   string
	format      string
	policyFile  string
	metricsFile string
	concurrency int
	include     []string
	exclude     []string

	awsProfile      string
	awsAccessKeyID  string
	awsSecretKey    string
	awsSessionToken string
	awsRegion       string

	gcpCredentials string
	gcpProject     string

	tfDir       string
	tfAccountID string
}

// scanOptions is the resolved configuration of one scan run.
type scanOptions struct {
	OutputDir   string
	Format      string
	PolicyFile  string
	MetricsFile string
	Concurrency int
	Filter      scanner.Filter
	Colored     bool

	AWS       credentials.AWS
	GCP       credentials.GCP
	Terraform credentials.Terraform
}

func newScanCmd(a *app) *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan [aws|gcp|terraform]...",
		Short: "Scan one or more providers for access-policy misconfigurations",
		Long: `Scan cloud access policies (IAM roles, managed policies, bucket policies,
project IAM and Terraform policy documents) and report external access,
wildcard permissions, administrative grants and missing prefix filters.

One JSON report per reachable provider is written to --output-dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := parseProviders(args)
			if err != nil {
				return err
			}
			if len(providers) == 0 && !f.interactive {
				return errors.New("specify at least one provider (aws, gcp, terraform) or --interactive")
			}
			opts := resolveScanOptions(cmd, a.cfg, f)
			opts.Colored = a.colored(cmd.OutOrStdout())

			var targets engine.Targets
			if f.interactive {
				targets = newPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), opts, a.logger)
			} else {
				list := engine.TargetList(buildTargets(providers, opts, a.logger))
				targets = &list
			}
			return runScan(cmd.Context(), cmd.OutOrStdout(), opts, targets, a.logger)
		},
	}

	fl := cmd.Flags()
	fl.BoolVarP(&f.interactive, "interactive", "i", false, "Choose providers and credentials interactively")
	fl.StringVar(&f.outputDir, "output-dir", "", "Directory for JSON reports (default from config: reports)")
	fl.StringVar(&f.format, "format", "", `Output format: "table" or "json"`)
	fl.StringVar(&f.policyFile, "policy", "", "Policy file with rule overrides and enforcement (default ./"+policy.DefaultPolicyFile+" if present)")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	fl.IntVar(&f.concurrency, "concurrency", 0, "Parallel policy fetches per resource kind")
	fl.StringSliceVar(&f.include, "include", nil, "Only scan resources whose name matches one of these wildcard patterns")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "Skip resources whose name matches one of these wildcard patterns")

	fl.StringVar(&f.awsProfile, "profile", "", "AWS shared-config profile")
	fl.StringVar(&f.awsAccessKeyID, "access-key-id", "", "AWS access key ID (with --secret-access-key)")
	fl.StringVar(&f.awsSecretKey, "secret-access-key", "", "AWS secret access key")
	fl.StringVar(&f.awsSessionToken, "session-token", "", "AWS session token for temporary credentials")
	fl.StringVar(&f.awsRegion, "region", "", "AWS home region (default us-east-1)")

	fl.StringVar(&f.gcpCredentials, "gcp-credentials", "", "GCP service-account key file (default: application default credentials)")
	fl.StringVar(&f.gcpProject, "gcp-project", "", "GCP project ID")

	fl.StringVar(&f.tfDir, "tf-dir", "", "Terraform configuration directory")
	fl.StringVar(&f.tfAccountID, "tf-account-id", "", "AWS account the Terraform configuration deploys into")
	return cmd
}

func parseProviders(args []string) ([]models.Provider, error) {
	var out []models.Provider
	for _, arg := range args {
		p, ok := models.ParseProvider(arg)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q (want aws, gcp or terraform)", arg)
		}
		out = append(out, p)
	}
	return out, nil
}

// resolveScanOptions layers explicitly set flags over the loaded config.
func resolveScanOptions(cmd *cobra.Command, cfg *config.Config, f scanFlags) scanOptions {
	changed := cmd.Flags().Changed
	pick := func(flag, flagVal, cfgVal string) string {
		if changed(flag) {
			return flagVal
		}
		return cfgVal
	}
	pickList := func(flag string, flagVal, cfgVal []string) []string {
		if changed(flag) {
			return flagVal
		}
		return cfgVal
	}

	opts := scanOptions{
		OutputDir:   pick("output-dir", f.outputDir, cfg.Output.Dir),
		Format:      strings.ToLower(pick("format", f.format, cfg.Output.Format)),
		PolicyFile:  pick("policy", f.policyFile, cfg.PolicyFile),
		MetricsFile: pick("metrics-file", f.metricsFile, cfg.Output.MetricsFile),
		Concurrency: cfg.Scan.Concurrency,
		Filter: scanner.Filter{
			Include: pickList("include", f.include, cfg.Scan.Include),
			Exclude: pickList("exclude", f.exclude, cfg.Scan.Exclude),
		},
		AWS: credentials.AWS{
			Profile:         pick("profile", f.awsProfile, cfg.AWS.Profile),
			AccessKeyID:     f.awsAccessKeyID,
			SecretAccessKey: f.awsSecretKey,
			SessionToken:    f.awsSessionToken,
			Region:          pick("region", f.awsRegion, cfg.AWS.Region),
		},
		GCP: credentials.GCP{
			CredentialsFile: pick("gcp-credentials", f.gcpCredentials, cfg.GCP.CredentialsFile),
			ProjectID:       pick("gcp-project", f.gcpProject, cfg.GCP.ProjectID),
		},
		Terraform: credentials.Terraform{
			Dir:       pick("tf-dir", f.tfDir, cfg.Terraform.Dir),
			AccountID: pick("tf-account-id", f.tfAccountID, cfg.Terraform.AccountID),
		},
	}
	if changed("concurrency") {
		opts.Concurrency = f.concurrency
	}
	// Static keys replace any configured profile.
	if opts.AWS.Static() && !changed("profile") {
		opts.AWS.Profile = ""
	}
	if opts.Terraform.Dir == "" {
		opts.Terraform.Dir = "."
	}
	return opts
}

// buildTarget returns the production engine.Target for p.
func buildTarget(p models.Provider, opts scanOptions, logger zerolog.Logger) engine.Target {
	switch p {
	case models.ProviderGCP:
		return gcp.NewTarget(opts.GCP)
	case models.ProviderTerraform:
		return terraform.NewTarget(opts.Terraform, &logger)
	default:
		return awssecurity.NewTarget(opts.AWS, common.NewDefaultAWSClientProvider())
	}
}

func buildTargets(providers []models.Provider, opts scanOptions, logger zerolog.Logger) []engine.Target {
	targets := make([]engine.Target, 0, len(providers))
	for _, p := range providers {
		targets = append(targets, buildTarget(p, opts, logger))
	}
	return targets
}

// runScan scans every target the source yields, writes one report per
// reachable provider, renders the session and applies policy enforcement.
// A policy violation returns errSilentExit after the output is written.
func runScan(ctx context.Context, w io.Writer, opts scanOptions, targets engine.Targets, logger zerolog.Logger) error {
	if opts.Format != config.FormatTable && opts.Format != config.FormatJSON {
		return fmt.Errorf("unknown format %q", opts.Format)
	}

	pol, err := loadPolicy(opts.PolicyFile)
	if err != nil {
		return err
	}

	var rec *metrics.Recorder
	if opts.MetricsFile != "" {
		rec = metrics.NewRecorder()
	}

	eng := engine.NewDefaultEngine(engine.Options{
		ReportDir:   opts.OutputDir,
		Concurrency: opts.Concurrency,
		Filter:      opts.Filter,
		Policy:      pol,
		Metrics:     rec,
		Logger:      &logger,
	})

	summary := engine.ScanAll(ctx, eng, targets)
	logger.Info().Int("providers", summary.Len()).Int("findings", len(summary.AllFindings())).Msg("scan session complete")
	if ctx.Err() != nil {
		logger.Warn().Msg("scan interrupted")
	}

	results := summary.Results()
	for _, r := range results {
		if r.Failed() {
			continue
		}
		if err := writeReport(r); err != nil {
			return err
		}
	}

	if err := renderSession(w, results, opts); err != nil {
		return err
	}

	if rec != nil {
		if err := rec.WriteTextfile(opts.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	for _, r := range results {
		if policy.ShouldFail(policy.DomainFor(r.Provider), r.Findings, pol) {
			logger.Warn().Str("provider", string(r.Provider)).Msg("findings at or above fail_on_severity")
			return errSilentExit
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// loadPolicy loads and validates the policy file, if any.
func loadPolicy(path string) (*policy.PolicyConfig, error) {
	pol, err := policy.LoadOptional(path)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	if pol == nil {
		return nil, nil
	}
	if errs := policy.Validate(pol, allRuleIDs()); len(errs) > 0 {
		return nil, fmt.Errorf("invalid policy: %w", errors.Join(errs...))
	}
	return pol, nil
}

// writeReport writes r to r.ReportPath as a models.Report.
func writeReport(r models.ScanResult) error {
	report := models.Report{
		ReportID:    uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Result:      r,
	}
	if report.Result.Findings == nil {
		report.Result.Findings = []models.Finding{}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.ReportPath), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(r.ReportPath, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", r.ReportPath, err)
	}
	return nil
}

func renderSession(w io.Writer, results []models.ScanResult, opts scanOptions) error {
	if opts.Format == config.FormatJSON {
		if results == nil {
			results = []models.ScanResult{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	tableOpts := output.TableOptions{Colored: opts.Colored}
	output.RenderSummary(w, results, tableOpts)
	fmt.Fprintln(w)
	output.RenderResultFindings(w, results, tableOpts)
	return nil
}
