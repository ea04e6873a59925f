package main

import (
	"context"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/engine"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rulepacks/storage"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/scanner"
)

const testAccount = "111122223333"

// ── fakes ─────────────────────────────────────────────────────────────────────

// bucketStub is a scanner.Source over in-memory bucket policies.
type bucketStub struct {
	policies map[string]string
}

func (s *bucketStub) Kind() models.ResourceKind { return models.KindAWSS3Bucket }
func (s *bucketStub) CollectionName() string    { return "S3 Buckets" }
func (s *bucketStub) Messages() scanner.Messages {
	return scanner.Messages{
		ListDescription:     "Failed to list S3 buckets",
		ListRecommendation:  "Ensure permissions allow s3:ListAllMyBuckets",
		FetchDescription:    "Failed to retrieve bucket policy",
		FetchRecommendation: "Ensure permissions allow s3:GetBucketPolicy",
	}
}

func (s *bucketStub) ListResources(context.Context) ([]models.Resource, error) {
	var out []models.Resource
	for _, name := range []string{"public-assets", "private-logs"} {
		out = append(out, models.Resource{Name: name, ID: "arn:aws:s3:::" + name, Kind: models.KindAWSS3Bucket})
	}
	return out, nil
}

func (s *bucketStub) FetchPolicy(_ context.Context, res models.Resource) (policydoc.Document, error) {
	p, ok := s.policies[res.Name]
	if !ok {
		return nil, scanner.ErrNoPolicy
	}
	return policydoc.JSON(p), nil
}

// stubTarget is an engine.Target with a canned connection.
type stubTarget struct {
	provider  models.Provider
	conn      *engine.Connection
	err       error
	connected bool
}

func (t *stubTarget) Provider() models.Provider { return t.provider }
func (t *stubTarget) Connect(context.Context) (*engine.Connection, error) {
	t.connected = true
	return t.conn, t.err
}

const publicRead = `{"Statement":[{"Principal":"*","Action":"s3:GetObject","Resource":"arn:aws:s3:::public-assets/*"}]}`

// publicBucketTarget returns an AWS target with one publicly readable bucket.
func publicBucketTarget() *stubTarget {
	return &stubTarget{
		provider: models.ProviderAWS,
		conn: &engine.Connection{
			AccountID: testAccount,
			Sources: []engine.KindSource{{
				Source: &bucketStub{policies: map[string]string{"public-assets": publicRead}},
				Pack:   storage.New(),
			}},
		},
	}
}

func cleanTarget(p models.Provider, account string) *stubTarget {
	return &stubTarget{provider: p, conn: &engine.Connection{AccountID: account}}
}

func targetsOf(ts ...engine.Target) *engine.TargetList {
	l := engine.TargetList(ts)
	return &l
}
