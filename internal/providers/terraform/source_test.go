package terraform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/scanner"
)

const mainTF = `
resource "aws_s3_bucket_policy" "public" {
  bucket = "b1"
  policy = <<POLICY
{"Statement":[{"Effect":"Allow","Principal":"*","Action":"s3:GetObject","Resource":"arn:aws:s3:::b1/*"}]}
POLICY
}

resource "aws_iam_policy" "admin" {
  name   = "admin"
  policy = jsonencode({
    Version   = "2012-10-17"
    Statement = [{ Effect = "Allow", Action = "*", Resource = "*" }]
  })
}

resource "aws_iam_role_policy" "dynamic" {
  role   = aws_iam_role.app.id
  policy = data.aws_iam_policy_document.app.json
}

resource "aws_s3_bucket" "ignored" {
  bucket = "b2"
}

data "aws_iam_policy_document" "trust" {
  statement {
    sid     = "CrossAccount"
    actions = ["sts:AssumeRole"]

    principals {
      type        = "AWS"
      identifiers = ["arn:aws:iam::444455556666:root"]
    }

    condition {
      test     = "StringEquals"
      variable = "sts:ExternalId"
      values   = ["abc"]
    }
  }
}
`

func writeTF(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func listAll(t *testing.T, src *policySource) map[string]models.Resource {
	t.Helper()
	res, err := src.ListResources(context.Background())
	require.NoError(t, err)
	byName := make(map[string]models.Resource, len(res))
	for _, r := range res {
		byName[r.Name] = r
	}
	return byName
}

// ── listing ───────────────────────────────────────────────────────────────────

func TestListResources_PolicyBlocksOnly(t *testing.T) {
	dir := writeTF(t, map[string]string{
		"main.tf":                 mainTF,
		"README.md":               "not terraform",
		".terraform/modules/x.tf": `resource "aws_iam_policy" "vendored" { policy = "{}" }`,
	})
	src := newPolicySource(dir, zerolog.Nop())
	byName := listAll(t, src)

	assert.Len(t, byName, 4)
	for _, name := range []string{
		"aws_s3_bucket_policy.public",
		"aws_iam_policy.admin",
		"aws_iam_role_policy.dynamic",
		"data.aws_iam_policy_document.trust",
	} {
		r, ok := byName[name]
		require.True(t, ok, "missing %s", name)
		assert.Equal(t, models.KindTerraformPolicy, r.Kind)
	}
	assert.Equal(t, "main.tf:2", byName["aws_s3_bucket_policy.public"].ID)
}

func TestListResources_MissingDir(t *testing.T) {
	src := newPolicySource(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
	_, err := src.ListResources(context.Background())
	var le *scanner.ListingError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, models.KindTerraformPolicy, le.Kind)
}

// ── fetching ──────────────────────────────────────────────────────────────────

func TestFetchPolicy_Heredoc(t *testing.T) {
	src := newPolicySource(writeTF(t, map[string]string{"main.tf": mainTF}), zerolog.Nop())
	res := listAll(t, src)["aws_s3_bucket_policy.public"]

	doc, err := src.FetchPolicy(context.Background(), res)
	require.NoError(t, err)
	stmts, err := doc.Statements()
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, policydoc.PrincipalWildcard, stmts[0].Principal().Kind())
}

func TestFetchPolicy_Jsonencode(t *testing.T) {
	src := newPolicySource(writeTF(t, map[string]string{"main.tf": mainTF}), zerolog.Nop())
	res := listAll(t, src)["aws_iam_policy.admin"]

	doc, err := src.FetchPolicy(context.Background(), res)
	require.NoError(t, err)
	stmts, err := doc.Statements()
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, []string{"*"}, stmts[0].Actions())
	assert.Equal(t, []string{"*"}, stmts[0].Resources())
}

func TestFetchPolicy_DynamicExpression(t *testing.T) {
	src := newPolicySource(writeTF(t, map[string]string{"main.tf": mainTF}), zerolog.Nop())
	res := listAll(t, src)["aws_iam_role_policy.dynamic"]

	_, err := src.FetchPolicy(context.Background(), res)
	var fe *scanner.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, codeDynamic, fe.Code)
	assert.ErrorIs(t, err, errDynamic)
}

func TestFetchPolicy_PolicyDocumentData(t *testing.T) {
	src := newPolicySource(writeTF(t, map[string]string{"main.tf": mainTF}), zerolog.Nop())
	res := listAll(t, src)["data.aws_iam_policy_document.trust"]

	doc, err := src.FetchPolicy(context.Background(), res)
	require.NoError(t, err)
	stmts, err := doc.Statements()
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	s := stmts[0]
	assert.Equal(t, "CrossAccount", s.Sid())
	assert.Equal(t, "Allow", s.Effect())
	assert.Equal(t, []string{"sts:AssumeRole"}, s.Actions())
	assert.Equal(t, []string{"arn:aws:iam::444455556666:root"}, s.Principal().Identities())
	assert.Equal(t, []string{"abc"}, s.Conditions()["StringEquals"]["sts:ExternalId"])
}

func TestFetchPolicy_WildcardPrincipalsBlock(t *testing.T) {
	src := newPolicySource(writeTF(t, map[string]string{"main.tf": `
data "aws_iam_policy_document" "open" {
  statement {
    actions   = ["s3:GetObject"]
    resources = ["arn:aws:s3:::b1/*"]
    principals {
      type        = "*"
      identifiers = ["*"]
    }
  }
}
`}), zerolog.Nop())
	res := listAll(t, src)["data.aws_iam_policy_document.open"]

	doc, err := src.FetchPolicy(context.Background(), res)
	require.NoError(t, err)
	stmts, err := doc.Statements()
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, policydoc.PrincipalWildcard, stmts[0].Principal().Kind())
}

func TestFetchPolicy_UnparseableFile(t *testing.T) {
	src := newPolicySource(writeTF(t, map[string]string{"broken.tf": `resource "aws_iam_policy" {`}), zerolog.Nop())
	res, ok := listAll(t, src)["broken.tf"]
	require.True(t, ok)

	_, err := src.FetchPolicy(context.Background(), res)
	var fe *scanner.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, codeParse, fe.Code)
}
