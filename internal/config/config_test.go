package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T, yamlBody, dotenv string, env map[string]string) *FileLoader {
	t.Helper()
	dir := t.TempDir()
	l := &FileLoader{
		path:    filepath.Join(dir, "config.yaml"),
		envFile: filepath.Join(dir, ".env"),
		lookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	}
	if yamlBody != "" {
		require.NoError(t, os.WriteFile(l.path, []byte(yamlBody), 0o600))
	}
	if dotenv != "" {
		require.NoError(t, os.WriteFile(l.envFile, []byte(dotenv), 0o600))
	}
	return l
}

func TestLoad_DefaultsWhenNothingPresent(t *testing.T) {
	cfg, err := newTestLoader(t, "", "", nil).Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLFile(t *testing.T) {
	cfg, err := newTestLoader(t, `
output:
  dir: /var/lk
  format: json
scan:
  concurrency: 8
  exclude: ["tmp-*"]
aws:
  profile: prod
gcp:
  project_id: demo-project
`, "", nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lk", cfg.Output.Dir)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, 8, cfg.Scan.Concurrency)
	assert.Equal(t, []string{"tmp-*"}, cfg.Scan.Exclude)
	assert.Equal(t, "prod", cfg.AWS.Profile)
	assert.Equal(t, "demo-project", cfg.GCP.ProjectID)
	// Unset keys keep their defaults.
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_EmptyYAMLFile(t *testing.T) {
	cfg, err := newTestLoader(t, "# nothing here\n", "", nil).Load()
	require.NoError(t, err)
	assert.Equal(t, FormatTable, cfg.Output.Format)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	_, err := newTestLoader(t, "outptu:\n  dir: x\n", "", nil).Load()
	assert.Error(t, err)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	cfg, err := newTestLoader(t, "aws:\n  profile: prod\n", "", map[string]string{
		"LK_AWS_PROFILE": "staging",
		"LK_CONCURRENCY": "2",
		"LK_EXCLUDE":     "tmp-*, scratch ,",
	}).Load()
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.AWS.Profile)
	assert.Equal(t, 2, cfg.Scan.Concurrency)
	assert.Equal(t, []string{"tmp-*", "scratch"}, cfg.Scan.Exclude)
}

func TestLoad_DotenvBelowProcessEnv(t *testing.T) {
	cfg, err := newTestLoader(t, "",
		"LK_GCP_PROJECT=from-dotenv\nLK_LOG_LEVEL=debug\n",
		map[string]string{"LK_LOG_LEVEL": "error"},
	).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.GCP.ProjectID)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := newTestLoader(t, "output:\n  format: xml\n", "", nil).Load()
	assert.ErrorContains(t, err, "output.format")

	_, err = newTestLoader(t, "", "", map[string]string{"LK_CONCURRENCY": "many"}).Load()
	assert.ErrorContains(t, err, "LK_CONCURRENCY")

	_, err = newTestLoader(t, "scan:\n  concurrency: -1\n", "", nil).Load()
	assert.ErrorContains(t, err, "scan.concurrency")
}

func TestNewFileLoader_ExpandsHome(t *testing.T) {
	l, err := NewFileLoader("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(l.ConfigPath()), "want absolute path, got %s", l.ConfigPath())
	assert.Equal(t, "config.yaml", filepath.Base(l.ConfigPath()))
}
