package rules

import (
	"testing"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
)

const testAccount = "111122223333"

var testBucket = models.Resource{
	Name: "b1",
	ID:   "arn:aws:s3:::b1",
	Kind: models.KindAWSS3Bucket,
}

// ctxFor parses doc, which must hold exactly one statement, and wraps it in a
// RuleContext for testAccount / testBucket.
func ctxFor(t *testing.T, doc string) RuleContext {
	t.Helper()
	stmts, err := policydoc.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse %s: %v", doc, err)
	}
	if len(stmts) != 1 {
		t.Fatalf("want 1 statement, got %d", len(stmts))
	}
	return RuleContext{Statement: stmts[0], AccountID: testAccount, Resource: testBucket}
}
