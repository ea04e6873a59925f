// Package config loads lk's user configuration: defaults, then the YAML file
// at ~/.config/lock-and-key/config.yaml, then a .env file, then LK_*
// environment variables. Command-line flags are applied last by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file location before home expansion.
const DefaultPath = "~/.config/lock-and-key/config.yaml"

// DefaultEnvFile is the dotenv file read from the working directory.
const DefaultEnvFile = ".env"

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Config is the top-level application configuration.
// It must never be committed with real secrets.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Scan      ScanConfig      `yaml:"scan"`
	Log       LogConfig       `yaml:"log"`
	AWS       AWSConfig       `yaml:"aws"`
	GCP       GCPConfig       `yaml:"gcp"`
	Terraform TerraformConfig `yaml:"terraform"`

	// PolicyFile is the lk.yaml policy applied to findings. Empty means
	// ./lk.yaml when present.
	PolicyFile string `yaml:"policy_file"`
}

// OutputConfig controls where reports go and how results are printed.
type OutputConfig struct {
	// Dir receives one JSON report per successfully scanned provider.
	Dir string `yaml:"dir"`

	// Format is "table" or "json".
	Format string `yaml:"format"`

	// MetricsFile, when set, receives Prometheus metrics in text format.
	MetricsFile string `yaml:"metrics_file"`
}

// ScanConfig tunes the scanner.
type ScanConfig struct {
	// Concurrency bounds parallel policy fetches per resource kind.
	// 0 or 1 means sequential.
	Concurrency int `yaml:"concurrency"`

	// Include and Exclude are wildcard patterns over resource names.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AWSConfig holds AWS defaults used when flags are not provided.
type AWSConfig struct {
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
}

// GCPConfig holds GCP defaults used when flags are not provided.
type GCPConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	ProjectID       string `yaml:"project_id"`
}

// TerraformConfig holds defaults for offline Terraform scans.
type TerraformConfig struct {
	Dir       string `yaml:"dir"`
	AccountID string `yaml:"account_id"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output: OutputConfig{Dir: "reports", Format: FormatTable},
		Scan:   ScanConfig{Concurrency: 4},
		Log:    LogConfig{Level: "warn", Format: "auto"},
	}
}

// Validate checks the fields with a closed set of values.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatTable, FormatJSON, c.Output.Format)
	}
	if c.Scan.Concurrency < 0 {
		return fmt.Errorf("scan.concurrency must be >= 0, got %d", c.Scan.Concurrency)
	}
	return nil
}

// Loader is the interface for reading Config.
type Loader interface {
	// Load reads, parses, and validates the configuration.
	Load() (*Config, error)

	// ConfigPath returns the absolute path to the configuration file.
	ConfigPath() string
}

// FileLoader is the default Loader.
type FileLoader struct {
	path    string
	envFile string

	// lookupEnv is os.LookupEnv outside tests.
	lookupEnv func(string) (string, bool)
}

// NewFileLoader returns a loader for path. An empty path means DefaultPath.
func NewFileLoader(path string) (*FileLoader, error) {
	if path == "" {
		path = DefaultPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand config path: %w", err)
	}
	return &FileLoader{path: expanded, envFile: DefaultEnvFile, lookupEnv: os.LookupEnv}, nil
}

func (l *FileLoader) ConfigPath() string { return l.path }

// Load applies defaults, the YAML file (if present), the .env file (if
// present) and LK_* variables, in that order. Process environment wins
// over .env entries.
func (l *FileLoader) Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config %s: %w", l.path, err)
		}
	}

	dotenv, err := l.readEnvFile()
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := l.lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (l *FileLoader) readEnvFile() (map[string]string, error) {
	if l.envFile == "" {
		return nil, nil
	}
	if _, err := os.Stat(l.envFile); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	env, err := godotenv.Read(l.envFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.envFile, err)
	}
	return env, nil
}

// applyEnv overlays LK_* variables onto cfg.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LK_OUTPUT_DIR":           &cfg.Output.Dir,
		"LK_FORMAT":               &cfg.Output.Format,
		"LK_METRICS_FILE":         &cfg.Output.MetricsFile,
		"LK_LOG_LEVEL":            &cfg.Log.Level,
		"LK_LOG_FORMAT":           &cfg.Log.Format,
		"LK_AWS_PROFILE":          &cfg.AWS.Profile,
		"LK_AWS_REGION":           &cfg.AWS.Region,
		"LK_GCP_CREDENTIALS":      &cfg.GCP.CredentialsFile,
		"LK_GCP_PROJECT":          &cfg.GCP.ProjectID,
		"LK_TERRAFORM_DIR":        &cfg.Terraform.Dir,
		"LK_TERRAFORM_ACCOUNT_ID": &cfg.Terraform.AccountID,
		"LK_POLICY_FILE":          &cfg.PolicyFile,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("LK_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("LK_CONCURRENCY: %w", err)
		}
		cfg.Scan.Concurrency = n
	}
	if v, ok := lookup("LK_INCLUDE"); ok && v != "" {
		cfg.Scan.Include = splitList(v)
	}
	if v, ok := lookup("LK_EXCLUDE"); ok && v != "" {
		cfg.Scan.Exclude = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
