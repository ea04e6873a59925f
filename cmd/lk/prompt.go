package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/engine"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/providers/aws/common"
)

// prompter is the interactive engine.Targets: it asks for a provider and its
// credentials, and after each scan whether to continue.
type prompter struct {
	in     *bufio.Reader
	out    io.Writer
	opts   scanOptions
	logger zerolog.Logger

	// build is buildTarget outside tests.
	build func(models.Provider, scanOptions, zerolog.Logger) engine.Target
	// profiles lists the shared-config AWS profiles.
	profiles func() ([]string, error)

	asked bool
}

func newPrompter(in io.Reader, out io.Writer, opts scanOptions, logger zerolog.Logger) *prompter {
	return &prompter{
		in:       bufio.NewReader(in),
		out:      out,
		opts:     opts,
		logger:   logger,
		build:    buildTarget,
		profiles: common.NewDefaultAWSClientProvider().ListProfiles,
	}
}

func (p *prompter) Next(context.Context) (engine.Target, bool) {
	if p.asked {
		again, ok := p.ask("Would you like to scan another cloud provider? [y/N]", "n")
		if !ok || !isYes(again) {
			return nil, false
		}
	}
	p.asked = true

	for i, prov := range models.Providers {
		fmt.Fprintf(p.out, "%d. %s (%s)\n", i+1, prov, prov.Description())
	}
	choice, ok := p.ask("Select a provider by number", "")
	if !ok {
		return nil, false
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(models.Providers) {
		fmt.Fprintln(p.out, "Invalid selection.")
		return nil, false
	}
	prov := models.Providers[n-1]

	opts := p.opts
	if !p.promptCredentials(prov, &opts) {
		return nil, false
	}
	return p.build(prov, opts, p.logger), true
}

// promptCredentials asks for the provider's settings, offering the current
// values as defaults.
func (p *prompter) promptCredentials(prov models.Provider, opts *scanOptions) bool {
	var ok bool
	switch prov {
	case models.ProviderAWS:
		if opts.AWS.Static() {
			return true
		}
		if names, err := p.profiles(); err != nil {
			p.logger.Debug().Err(err).Msg("list AWS profiles")
		} else if len(names) > 0 {
			fmt.Fprintf(p.out, "Available AWS profiles: %s\n", strings.Join(names, ", "))
		}
		if opts.AWS.Profile, ok = p.ask("AWS profile (blank for the default chain)", opts.AWS.Profile); !ok {
			return false
		}
		opts.AWS.Region, ok = p.ask("AWS region", opts.AWS.Region)
	case models.ProviderGCP:
		if opts.GCP.ProjectID, ok = p.ask("GCP project ID", opts.GCP.ProjectID); !ok {
			return false
		}
		opts.GCP.CredentialsFile, ok = p.ask("Service-account key file (blank for application default credentials)", opts.GCP.CredentialsFile)
	case models.ProviderTerraform:
		if opts.Terraform.Dir, ok = p.ask("Terraform directory", opts.Terraform.Dir); !ok {
			return false
		}
		opts.Terraform.AccountID, ok = p.ask("Deployment account ID (optional)", opts.Terraform.AccountID)
	}
	return ok
}

// ask prints label with def and returns the trimmed answer, or def when the
// answer is blank. It returns false on end of input.
func (p *prompter) ask(label, def string) (string, bool) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return "", false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, true
	}
	return line, true
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}
