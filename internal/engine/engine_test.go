package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/credentials"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/metrics"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policy"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rulepacks/identity"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rulepacks/storage"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/scanner"
)

const account = "111122223333"

// ── fakes ───────────────────────────────────────────────────────────────────

type stubSource struct {
	kind       models.ResourceKind
	collection string
	resources  []models.Resource
	listErr    error
	policies   map[string]string
}

func (s *stubSource) Kind() models.ResourceKind { return s.kind }
func (s *stubSource) CollectionName() string    { return s.collection }
func (s *stubSource) Messages() scanner.Messages {
	return scanner.Messages{
		ListDescription:     "Failed to list " + s.collection,
		ListRecommendation:  "Ensure permissions allow listing",
		FetchDescription:    "Failed to retrieve policy",
		FetchRecommendation: "Ensure permissions allow policy access",
	}
}
func (s *stubSource) ListResources(context.Context) ([]models.Resource, error) {
	return s.resources, s.listErr
}
func (s *stubSource) FetchPolicy(_ context.Context, res models.Resource) (policydoc.Document, error) {
	p, ok := s.policies[res.Name]
	if !ok {
		return nil, scanner.ErrNoPolicy
	}
	return policydoc.JSON(p), nil
}

type stubTarget struct {
	provider models.Provider
	conn     *Connection
	err      error
}

func (t stubTarget) Provider() models.Provider { return t.provider }
func (t stubTarget) Connect(context.Context) (*Connection, error) {
	return t.conn, t.err
}

func bucketSource(policies map[string]string, names ...string) *stubSource {
	var res []models.Resource
	for _, n := range names {
		res = append(res, models.Resource{Name: n, ID: "arn:aws:s3:::" + n, Kind: models.KindAWSS3Bucket})
	}
	return &stubSource{kind: models.KindAWSS3Bucket, collection: "S3 Buckets", resources: res, policies: policies}
}

const publicGetObject = `{"Statement":[{"Principal":"*","Action":"s3:GetObject","Resource":"arn:aws:s3:::b1/*"}]}`

// ── BuildScanResult ─────────────────────────────────────────────────────────

func TestBuildScanResult_Empty(t *testing.T) {
	r := BuildScanResult(models.ProviderAWS, account, nil, "reports")
	assert.Equal(t, 0, r.IssuesFound)
	assert.Equal(t, 0, r.HighRiskPermissions)
	assert.Equal(t, 0, r.LeastPrivilegeViolations)
	assert.NotNil(t, r.Findings)
	assert.Equal(t, "Scanned IAM and S3 policies. Found 0 security issues.", r.Summary)
	assert.Equal(t, filepath.Join("reports", "aws_report_111122223333.json"), r.ReportPath)
	assert.False(t, r.Failed())
}

func TestBuildScanResult_CountInvariants(t *testing.T) {
	for n := 0; n < 20; n++ {
		var findings []models.Finding
		wantHigh := 0
		for i := 0; i < n; i++ {
			sev := []models.Severity{models.SeverityHigh, models.SeverityMedium, models.SeverityLow}[i%3]
			if sev == models.SeverityHigh {
				wantHigh++
			}
			findings = append(findings, models.Finding{Severity: sev, Description: fmt.Sprintf("finding %d", i)})
		}
		r := BuildScanResult(models.ProviderGCP, "proj", findings, "")
		assert.Equal(t, len(r.Findings), r.IssuesFound)
		assert.Equal(t, wantHigh, r.HighRiskPermissions)
	}
}

func TestBuildScanResult_LeastPrivilegeCaseAsymmetryQuirk(t *testing.T) {
	// "wildcard" matches in any case; "Administrative" only with a capital A.
	// Preserved as-is until the intended behaviour is confirmed.
	findings := []models.Finding{
		{Description: "Wildcard permissions (*) detected"},
		{Description: "uses a WILDCARD action"},
		{Description: "Administrative access granted (Action * on Resource *)"},
		{Description: "administrative access granted"},
		{Description: "ADMINISTRATIVE access granted"},
		{Description: "External account access detected"},
	}
	r := BuildScanResult(models.ProviderAWS, account, findings, "")
	assert.Equal(t, 3, r.LeastPrivilegeViolations)
	assert.Equal(t, 6, r.IssuesFound)
}

func TestReportPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "gcp_report_my-project.json"), ReportPath("out", models.ProviderGCP, "my-project"))
	assert.Equal(t, "terraform_report_local.json", ReportPath("", models.ProviderTerraform, ""))
}

func TestFailedScanResult(t *testing.T) {
	r := FailedScanResult(models.ProviderAWS, credentials.ErrCredentialsUnavailable)
	assert.Equal(t, models.UnknownAccount, r.AccountID)
	assert.Equal(t, 0, r.IssuesFound)
	assert.Equal(t, 0, r.LeastPrivilegeViolations)
	assert.Equal(t, 0, r.HighRiskPermissions)
	assert.Equal(t, "", r.ReportPath)
	assert.Equal(t, "Failed to scan AWS: credentials unavailable", r.Summary)
	assert.Empty(t, r.Findings)
	assert.True(t, r.Failed())
}

// ── DefaultEngine ───────────────────────────────────────────────────────────

func TestScan_BucketScenario(t *testing.T) {
	target := stubTarget{provider: models.ProviderAWS, conn: &Connection{
		AccountID: account,
		Sources:   []KindSource{{Source: bucketSource(map[string]string{"b1": publicGetObject}, "b1"), Pack: storage.New()}},
	}}
	r := NewDefaultEngine(Options{ReportDir: "out"}).Scan(context.Background(), target)

	assert.Equal(t, 3, r.IssuesFound)
	assert.Equal(t, 1, r.HighRiskPermissions)
	assert.Equal(t, 1, r.LeastPrivilegeViolations)
	assert.Equal(t, account, r.AccountID)
	assert.Equal(t, "Scanned IAM and S3 policies. Found 3 security issues.", r.Summary)
}

func TestScan_ListingFailureIsolatedFromOtherKinds(t *testing.T) {
	roles := &stubSource{
		kind:       models.KindAWSIAMRole,
		collection: "IAM Roles",
		resources:  []models.Resource{{Name: "deploy", ID: "arn:aws:iam::111122223333:role/deploy", Kind: models.KindAWSIAMRole}},
		policies: map[string]string{
			"deploy": `{"Statement":[{"Effect":"Allow","Principal":{"AWS":"arn:aws:iam::444455556666:root"},"Action":"sts:AssumeRole"}]}`,
		},
	}
	broken := &stubSource{
		kind:       models.KindAWSS3Bucket,
		collection: "S3 Buckets",
		listErr:    &scanner.ListingError{Kind: models.KindAWSS3Bucket, Code: "AccessDenied", Err: errors.New("denied")},
	}
	target := stubTarget{provider: models.ProviderAWS, conn: &Connection{
		AccountID: account,
		Sources: []KindSource{
			{Source: roles, Pack: identity.New()},
			{Source: broken, Pack: storage.New()},
		},
	}}
	r := NewDefaultEngine(Options{Concurrency: 4}).Scan(context.Background(), target)

	require.Len(t, r.Findings, 2)
	assert.Equal(t, models.IssueExternalAccess, r.Findings[0].IssueType)
	assert.Equal(t, "deploy", r.Findings[0].ResourceName)
	assert.Equal(t, models.IssueAccessError, r.Findings[1].IssueType)
	assert.Equal(t, "S3 Buckets", r.Findings[1].ResourceName)
	assert.Equal(t, 1, r.HighRiskPermissions)
}

func TestScan_ListingFailureOnly(t *testing.T) {
	broken := &stubSource{
		kind:       models.KindAWSS3Bucket,
		collection: "S3 Buckets",
		listErr:    errors.New("denied"),
	}
	target := stubTarget{provider: models.ProviderAWS, conn: &Connection{
		AccountID: account,
		Sources:   []KindSource{{Source: broken, Pack: storage.New()}},
	}}
	r := NewDefaultEngine(Options{}).Scan(context.Background(), target)

	require.Len(t, r.Findings, 1)
	assert.Equal(t, models.IssueAccessError, r.Findings[0].IssueType)
	assert.Equal(t, 1, r.IssuesFound)
	assert.Equal(t, 0, r.HighRiskPermissions)
}

func TestScan_KindOrderIsSourceOrder(t *testing.T) {
	first := bucketSource(map[string]string{"a": publicGetObject}, "a")
	second := bucketSource(map[string]string{"z": publicGetObject}, "z")
	target := stubTarget{provider: models.ProviderAWS, conn: &Connection{
		AccountID: account,
		Sources:   []KindSource{{Source: first, Pack: storage.New()}, {Source: second, Pack: storage.New()}},
	}}
	for i := 0; i < 10; i++ {
		r := NewDefaultEngine(Options{}).Scan(context.Background(), target)
		require.Len(t, r.Findings, 6)
		assert.Equal(t, "a", r.Findings[0].ResourceName)
		assert.Equal(t, "z", r.Findings[5].ResourceName)
	}
}

func TestScan_ConnectFailure(t *testing.T) {
	rec := metrics.NewRecorder()
	target := stubTarget{provider: models.ProviderGCP, err: fmt.Errorf("resolve gcp: %w", credentials.ErrCredentialsUnavailable)}
	r := NewDefaultEngine(Options{Metrics: rec}).Scan(context.Background(), target)

	assert.True(t, r.Failed())
	assert.Equal(t, "Failed to scan GCP: resolve gcp: credentials unavailable", r.Summary)
	assert.Contains(t, testGather(t, rec), "lk_scan_failures_total")
}

func TestScan_PolicyOverridesApplied(t *testing.T) {
	f := false
	cfg := &policy.PolicyConfig{
		Version: 1,
		Rules: map[string]policy.RuleConfig{
			"MISSING_PREFIX_FILTER": {Enabled: &f},
			"WILDCARD_PERMISSION":   {Severity: "High"},
		},
	}
	target := stubTarget{provider: models.ProviderAWS, conn: &Connection{
		AccountID: account,
		Sources:   []KindSource{{Source: bucketSource(map[string]string{"b1": publicGetObject}, "b1"), Pack: storage.New()}},
	}}
	r := NewDefaultEngine(Options{Policy: cfg}).Scan(context.Background(), target)

	require.Len(t, r.Findings, 2)
	assert.Equal(t, 2, r.IssuesFound)
	assert.Equal(t, 2, r.HighRiskPermissions)
}

func TestScan_MetricsCountResources(t *testing.T) {
	rec := metrics.NewRecorder()
	target := stubTarget{provider: models.ProviderAWS, conn: &Connection{
		AccountID: account,
		Sources:   []KindSource{{Source: bucketSource(map[string]string{"b1": publicGetObject}, "b1", "b2"), Pack: storage.New()}},
	}}
	NewDefaultEngine(Options{Metrics: rec}).Scan(context.Background(), target)

	n, err := testutil.GatherAndCount(rec.Gatherer(), "lk_resources_scanned_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, testGather(t, rec), `lk_resources_scanned_total{kind="S3_BUCKET",provider="AWS"} 2`)
}

// ── ScanAll ─────────────────────────────────────────────────────────────────

func TestScanAll_OrderAndFailureIsolation(t *testing.T) {
	targets := TargetList{
		stubTarget{provider: models.ProviderGCP, err: credentials.ErrCredentialsUnavailable},
		stubTarget{provider: models.ProviderAWS, conn: &Connection{
			AccountID: account,
			Sources:   []KindSource{{Source: bucketSource(map[string]string{"b1": publicGetObject}, "b1"), Pack: storage.New()}},
		}},
	}
	summary := ScanAll(context.Background(), NewDefaultEngine(Options{}), &targets)

	results := summary.Results()
	require.Len(t, results, 2)
	assert.Equal(t, models.ProviderGCP, results[0].Provider)
	assert.True(t, results[0].Failed())
	assert.Equal(t, models.ProviderAWS, results[1].Provider)
	assert.Equal(t, 3, results[1].IssuesFound)
	assert.Len(t, summary.AllFindings(), 3)
}

func TestScanAll_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	targets := TargetList{stubTarget{provider: models.ProviderAWS}}
	summary := ScanAll(ctx, NewDefaultEngine(Options{}), &targets)
	assert.Equal(t, 0, summary.Len())
	assert.Len(t, targets, 1, "no target may be consumed after cancellation")
}

func TestTargetList_YieldsInOrder(t *testing.T) {
	a := stubTarget{provider: models.ProviderAWS}
	b := stubTarget{provider: models.ProviderGCP}
	list := TargetList{a, b}

	got, ok := list.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, models.ProviderAWS, got.Provider())
	got, ok = list.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, models.ProviderGCP, got.Provider())
	_, ok = list.Next(context.Background())
	assert.False(t, ok)
}

func testGather(t *testing.T, rec *metrics.Recorder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "m.prom")
	require.NoError(t, rec.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
