package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
)

func TestProviders(t *testing.T) {
	var all = []Credentials{AWS{}, GCP{}, Terraform{}}
	want := []models.Provider{models.ProviderAWS, models.ProviderGCP, models.ProviderTerraform}
	for i, c := range all {
		assert.Equal(t, want[i], c.Provider())
	}
}

func TestAWS_Validate(t *testing.T) {
	assert.NoError(t, AWS{}.Validate())
	assert.NoError(t, AWS{Profile: "prod"}.Validate())
	assert.NoError(t, AWS{AccessKeyID: "AKIA", SecretAccessKey: "s"}.Validate())

	err := AWS{AccessKeyID: "AKIA"}.Validate()
	assert.True(t, errors.Is(err, ErrCredentialsUnavailable))

	assert.Error(t, AWS{Profile: "prod", AccessKeyID: "AKIA", SecretAccessKey: "s"}.Validate())
}

func TestGCP_Validate(t *testing.T) {
	assert.ErrorIs(t, GCP{}.Validate(), ErrCredentialsUnavailable)
	assert.NoError(t, GCP{ProjectID: "p"}.Validate())

	missing := filepath.Join(t.TempDir(), "sa.json")
	assert.ErrorIs(t, GCP{ProjectID: "p", CredentialsFile: missing}.Validate(), ErrCredentialsUnavailable)

	assert.NoError(t, os.WriteFile(missing, []byte("{}"), 0o600))
	assert.NoError(t, GCP{ProjectID: "p", CredentialsFile: missing}.Validate())
	assert.Error(t, GCP{ProjectID: "p", CredentialsFile: missing, CredentialsJSON: []byte("{}")}.Validate())
}

func TestTerraform_Validate(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, Terraform{}.Validate())
	assert.NoError(t, Terraform{Dir: dir}.Validate())

	file := filepath.Join(dir, "main.tf")
	assert.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, Terraform{Dir: file}.Validate())
	assert.Error(t, Terraform{Dir: filepath.Join(dir, "nope")}.Validate())
}
