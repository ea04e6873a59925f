package awssecurity

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/scanner"
)

// bucketSource lists S3 buckets and reads each bucket policy from the
// bucket's own region.
type bucketSource struct {
	cfg     aws.Config
	factory secClientFactory
	home    s3APIClient

	mu       sync.Mutex
	regions  map[string]string      // bucket name → region
	regional map[string]s3APIClient // region → client
}

func newBucketSource(cfg aws.Config, factory secClientFactory, home s3APIClient) *bucketSource {
	return &bucketSource{
		cfg:      cfg,
		factory:  factory,
		home:     home,
		regions:  make(map[string]string),
		regional: make(map[string]s3APIClient),
	}
}

func (s *bucketSource) Kind() models.ResourceKind { return models.KindAWSS3Bucket }
func (s *bucketSource) CollectionName() string    { return "S3 Buckets" }

func (s *bucketSource) Messages() scanner.Messages {
	return scanner.Messages{
		ListDescription:     "Failed to list S3 buckets",
		ListRecommendation:  "Ensure S3 permissions allow bucket listing",
		FetchDescription:    "Failed to retrieve policy",
		FetchRecommendation: "Ensure S3 permissions allow policy access",
	}
}

// ListResources pages through ListBuckets and remembers each bucket's region.
func (s *bucketSource) ListResources(ctx context.Context) ([]models.Resource, error) {
	paginator := s3svc.NewListBucketsPaginator(s.home, &s3svc.ListBucketsInput{})
	var resources []models.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &scanner.ListingError{Kind: s.Kind(), Code: errorCode(err), Err: err}
		}
		for _, b := range page.Buckets {
			name := aws.ToString(b.Name)
			s.mu.Lock()
			s.regions[name] = aws.ToString(b.BucketRegion)
			s.mu.Unlock()
			resources = append(resources, models.Resource{
				Name: name,
				ID:   "arn:aws:s3:::" + name,
				Kind: models.KindAWSS3Bucket,
			})
		}
	}
	return resources, nil
}

// FetchPolicy returns the bucket policy JSON. NoSuchBucketPolicy maps to
// scanner.ErrNoPolicy.
func (s *bucketSource) FetchPolicy(ctx context.Context, res models.Resource) (policydoc.Document, error) {
	out, err := s.clientFor(res.Name).GetBucketPolicy(ctx, &s3svc.GetBucketPolicyInput{
		Bucket: aws.String(res.Name),
	})
	if err != nil {
		code := errorCode(err)
		if code == codeNoSuchBucketPolicy {
			return nil, scanner.ErrNoPolicy
		}
		return nil, &scanner.FetchError{Resource: res, Code: code, Err: err}
	}
	if out.Policy == nil || *out.Policy == "" {
		return nil, scanner.ErrNoPolicy
	}
	return policydoc.JSON(aws.ToString(out.Policy)), nil
}

// clientFor returns an S3 client pinned to the bucket's region, building
// and caching one per region on first use.
func (s *bucketSource) clientFor(bucket string) s3APIClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	region := s.regions[bucket]
	if region == "" || region == s.cfg.Region {
		return s.home
	}
	if c, ok := s.regional[region]; ok {
		return c
	}
	regCfg := s.cfg.Copy()
	regCfg.Region = region
	c := s.factory(regCfg).S3
	s.regional[region] = c
	return c
}
