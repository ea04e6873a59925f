// Package scanner walks one resource kind of a provider account, fetches each
// resource's access policy and runs a rule registry over its statements.
//
// Provider adapters implement Source. The scanner never returns an error:
// listing, fetch and parse failures become access-error findings so that one
// unreadable resource, or one unreadable collection, never aborts a scan.
package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
)

// ErrNoPolicy is returned by Source.FetchPolicy when the resource correctly
// has no policy attached. The scanner skips such resources silently.
var ErrNoPolicy = errors.New("no policy attached")

// ListingError reports that a resource collection could not be listed.
// Code is the provider error code when one is available (e.g. "AccessDenied").
type ListingError struct {
	Kind models.ResourceKind
	Code string
	Err  error
}

func (e *ListingError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("list %s: %s: %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("list %s: %v", e.Kind, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }

// FetchError reports that one resource's policy could not be retrieved for a
// reason other than the policy being absent.
type FetchError struct {
	Resource models.Resource
	Code     string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("fetch policy for %s: %s: %v", e.Resource.Name, e.Code, e.Err)
	}
	return fmt.Sprintf("fetch policy for %s: %v", e.Resource.Name, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Messages holds the user-facing texts of the access-error findings a
// source produces.
type Messages struct {
	ListDescription     string
	ListRecommendation  string
	FetchDescription    string
	FetchRecommendation string
}

// Source lists one kind of resource and fetches each resource's policy.
type Source interface {
	// Kind identifies the resources this source lists.
	Kind() models.ResourceKind

	// CollectionName names the whole collection in listing-failure findings
	// (e.g. "S3 Buckets").
	CollectionName() string

	// Messages returns the access-error texts for this source.
	Messages() Messages

	// ListResources returns every resource of Kind in listing order.
	ListResources(ctx context.Context) ([]models.Resource, error)

	// FetchPolicy returns the unparsed policy attached to res, ErrNoPolicy
	// when there is none, or another error when it cannot be read.
	FetchPolicy(ctx context.Context, res models.Resource) (policydoc.Document, error)
}
