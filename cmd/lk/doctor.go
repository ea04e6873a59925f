package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/credentials"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/engine"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policy"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/providers/gcp"
)

// DoctorResult is the structured output of lk doctor. It can be serialised to
// JSON via --format=json or rendered as a human-readable table (default).
type DoctorResult struct {
	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	GCP struct {
		Configured  bool   `json:"configured"`
		ProjectID   string `json:"project_id,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		Error       string `json:"error,omitempty"`
	} `json:"gcp"`

	Terraform struct {
		Configured bool   `json:"configured"`
		Dir        string `json:"dir,omitempty"`
		Readable   bool   `json:"readable"`
		Error      string `json:"error,omitempty"`
	} `json:"terraform"`

	Policy struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	OverallHealthy bool `json:"overall_healthy"`
}

// doctorInputs carries what collectDoctorResult checks. A nil GCP target
// or empty Terraform dir means that provider is not configured.
type doctorInputs struct {
	AWSProvider common.AWSClientProvider
	AWS         credentials.AWS
	GCP         engine.Target
	GCPProject  string
	Terraform   credentials.Terraform
	PolicyFile  string
}

func newDoctorCmd(a *app) *cobra.Command {
	var (
		format  string
		profile string
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check credentials, identity and the policy file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := doctorInputs{
				AWSProvider: common.NewDefaultAWSClientProvider(),
				AWS:         credentials.AWS{Profile: a.cfg.AWS.Profile, Region: a.cfg.AWS.Region},
				Terraform:   credentials.Terraform{Dir: a.cfg.Terraform.Dir, AccountID: a.cfg.Terraform.AccountID},
				PolicyFile:  a.cfg.PolicyFile,
			}
			if cmd.Flags().Changed("profile") {
				in.AWS.Profile = profile
			}
			if a.cfg.GCP.ProjectID != "" {
				gcpCreds := credentials.GCP{CredentialsFile: a.cfg.GCP.CredentialsFile, ProjectID: a.cfg.GCP.ProjectID}
				in.GCP = gcp.NewTarget(gcpCreds)
				in.GCPProject = gcpCreds.ProjectID
			}

			result, err := runDoctor(cmd.Context(), in, cmd.OutOrStdout(), format)
			if err != nil {
				// Rendering failure; let main report it.
				return err
			}
			if !result.OverallHealthy {
				return errSilentExit
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile to use (default: credential chain)")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to decide the exit status.
func runDoctor(ctx context.Context, in doctorInputs, w io.Writer, format string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, in)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
// It performs no rendering; callers decide how to present the result.
func collectDoctorResult(ctx context.Context, in doctorInputs) DoctorResult {
	var result DoctorResult

	// AWS: credentials → STS account ID.
	result.AWS.Profile = in.AWS.Profile
	profileCfg, err := in.AWSProvider.Load(ctx, in.AWS)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
	}

	// GCP: credentials resolve and clients build (optional).
	if in.GCP != nil {
		result.GCP.Configured = true
		result.GCP.ProjectID = in.GCPProject
		if _, err := in.GCP.Connect(ctx); err != nil {
			result.GCP.Error = err.Error()
		} else {
			result.GCP.Credentials = true
		}
	}

	// Terraform: directory readable (optional).
	if in.Terraform.Dir != "" {
		result.Terraform.Configured = true
		result.Terraform.Dir = in.Terraform.Dir
		if err := in.Terraform.Validate(); err != nil {
			result.Terraform.Error = err.Error()
		} else {
			result.Terraform.Readable = true
		}
	}

	// Policy: stat → load → validate. Only the default lk.yaml is optional;
	// an explicit path must exist, as it must for lk scan.
	path := in.PolicyFile
	if path == "" {
		path = policy.DefaultPolicyFile
	}
	result.Policy.Path = path
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		result.Policy.Present = true
		cfg, loadErr := policy.LoadPolicy(path)
		if loadErr != nil {
			result.Policy.Errors = []string{loadErr.Error()}
			break
		}
		errs := policy.Validate(cfg, allRuleIDs())
		if len(errs) == 0 {
			result.Policy.Valid = true
		}
		for _, e := range errs {
			result.Policy.Errors = append(result.Policy.Errors, e.Error())
		}
	case os.IsNotExist(statErr) && in.PolicyFile == "":
		// No default policy file: nothing to check.
	default:
		result.Policy.Errors = []string{statErr.Error()}
	}

	result.OverallHealthy = result.AWS.Credentials &&
		(!result.GCP.Configured || result.GCP.Credentials) &&
		(!result.Terraform.Configured || result.Terraform.Readable) &&
		len(result.Policy.Errors) == 0

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
	}

	fmt.Fprintln(w, "\nGCP:")
	switch {
	case !result.GCP.Configured:
		doctorPrint(w, "Project", "Not configured (optional)", "")
	case result.GCP.Credentials:
		doctorPrint(w, "Project", "OK", result.GCP.ProjectID)
		doctorPrint(w, "Credentials", "OK", "")
	default:
		doctorPrint(w, "Project", "OK", result.GCP.ProjectID)
		doctorPrint(w, "Credentials", "FAIL", result.GCP.Error)
	}

	fmt.Fprintln(w, "\nTerraform:")
	switch {
	case !result.Terraform.Configured:
		doctorPrint(w, "Directory", "Not configured (optional)", "")
	case result.Terraform.Readable:
		doctorPrint(w, "Directory", "OK", result.Terraform.Dir)
	default:
		doctorPrint(w, "Directory", "FAIL", result.Terraform.Error)
	}

	fmt.Fprintln(w, "\nPolicy:")
	switch {
	case result.Policy.Present:
		doctorPrint(w, "Policy file", "OK", result.Policy.Path)
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		}
		for _, e := range result.Policy.Errors {
			doctorPrint(w, "Policy valid", "FAIL", e)
		}
	case len(result.Policy.Errors) > 0:
		doctorPrint(w, "Policy file", "FAIL", result.Policy.Errors[0])
	default:
		doctorPrint(w, "Policy file", "Not found (optional)", result.Policy.Path)
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
