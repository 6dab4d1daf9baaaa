package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bucketpilot/bucketpilot/internal/config"
)

// New builds the backend matching a bucket descriptor. Each request gets its
// own client; the SDK manages connection reuse underneath.
func New(ctx context.Context, bc config.BucketConfig) (Backend, error) {
	if err := bc.Validate(); err != nil {
		return nil, err
	}

	switch bc.Provider {
	case config.ProviderR2:
		endpoint := bc.Endpoint
		if endpoint == "" {
			endpoint = R2Endpoint(bc.AccountID)
		}
		client, err := newS3Client(ctx, bc, r2Region, endpoint, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create r2 client for bucket %s: %w", bc.ID, err)
		}
		return NewR2Backend(client, bc.Name), nil

	case config.ProviderS3:
		// A custom endpoint means an S3-compatible service, which usually
		// needs path-style addressing.
		client, err := newS3Client(ctx, bc, bc.Region, bc.Endpoint, bc.Endpoint != "")
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client for bucket %s: %w", bc.ID, err)
		}
		return NewS3Backend(client, bc.Name), nil

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", bc.Provider)
	}
}

func newS3Client(ctx context.Context, bc config.BucketConfig, region, endpoint string, pathStyle bool) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			bc.AccessKeyID,
			bc.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
		}
		return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = pathStyle
		}), nil
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
	}), nil
}
