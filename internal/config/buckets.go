package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Provider identifies which storage backend serves a bucket.
type Provider string

const (
	ProviderR2 Provider = "r2"
	ProviderS3 Provider = "s3"
)

// BucketConfig describes one bucket the server can talk to. Credentials are
// never serialized back to clients; only Summary() leaves the process.
type BucketConfig struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DisplayName     string   `json:"displayName"`
	Provider        Provider `json:"provider"`
	Region          string   `json:"region,omitempty"`
	Endpoint        string   `json:"endpoint,omitempty"`
	AccountID       string   `json:"accountId,omitempty"`
	AccessKeyID     string   `json:"accessKeyId"`
	SecretAccessKey string   `json:"secretAccessKey"`
}

// BucketSummary is the client-safe view of a bucket.
type BucketSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Provider    Provider `json:"provider"`
}

func (c BucketConfig) Summary() BucketSummary {
	return BucketSummary{ID: c.ID, Name: c.Name, DisplayName: c.DisplayName, Provider: c.Provider}
}

// Validate checks that the descriptor carries everything its provider needs.
func (c BucketConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("bucket config missing id")
	}
	if c.Name == "" {
		return fmt.Errorf("bucket %s: missing bucket name", c.ID)
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return fmt.Errorf("bucket %s: missing credentials", c.ID)
	}
	switch c.Provider {
	case ProviderR2:
		if c.AccountID == "" && c.Endpoint == "" {
			return fmt.Errorf("bucket %s: r2 requires accountId or endpoint", c.ID)
		}
	case ProviderS3:
		if c.Region == "" {
			return fmt.Errorf("bucket %s: s3 requires region", c.ID)
		}
	default:
		return fmt.Errorf("bucket %s: unknown provider %q", c.ID, c.Provider)
	}
	return nil
}

// Buckets is the loaded bucket registry.
type Buckets []BucketConfig

// Find returns the bucket with the given id.
func (b Buckets) Find(id string) (BucketConfig, bool) {
	for _, cfg := range b {
		if cfg.ID == id {
			return cfg, true
		}
	}
	return BucketConfig{}, false
}

// LoadBuckets reads bucket descriptors from BUCKETS_FILE (a JSON array) when
// set, otherwise from the R2_* / S3_* environment variables. Configuration
// errors are fatal to the caller; there are no retries.
func LoadBuckets() (Buckets, error) {
	if path := Get("BUCKETS_FILE", ""); path != "" {
		return loadBucketsFile(path)
	}
	buckets := bucketsFromEnv()
	if len(buckets) == 0 {
		return nil, fmt.Errorf("no buckets configured: set BUCKETS_FILE or R2_*/S3_* variables")
	}
	return validated(buckets)
}

func loadBucketsFile(path string) (Buckets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read buckets file %s: %w", path, err)
	}
	var buckets Buckets
	if err := json.Unmarshal(data, &buckets); err != nil {
		return nil, fmt.Errorf("failed to parse buckets file %s: %w", path, err)
	}
	if len(buckets) == 0 {
		return nil, fmt.Errorf("buckets file %s contains no buckets", path)
	}
	return validated(buckets)
}

func bucketsFromEnv() Buckets {
	var buckets Buckets

	if name := Get("R2_BUCKET_NAME", ""); name != "" {
		buckets = append(buckets, BucketConfig{
			ID:              Get("R2_BUCKET_ID", "r2-"+name),
			Name:            name,
			DisplayName:     Get("R2_DISPLAY_NAME", name),
			Provider:        ProviderR2,
			Endpoint:        Get("R2_ENDPOINT", ""),
			AccountID:       Get("R2_ACCOUNT_ID", ""),
			AccessKeyID:     Get("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: Get("R2_SECRET_ACCESS_KEY", ""),
		})
	}

	if name := Get("S3_BUCKET_NAME", ""); name != "" {
		buckets = append(buckets, BucketConfig{
			ID:              Get("S3_BUCKET_ID", "s3-"+name),
			Name:            name,
			DisplayName:     Get("S3_DISPLAY_NAME", name),
			Provider:        ProviderS3,
			Region:          Get("S3_REGION", ""),
			Endpoint:        Get("S3_ENDPOINT", ""),
			AccessKeyID:     Get("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: Get("S3_SECRET_ACCESS_KEY", ""),
		})
	}

	return buckets
}

func validated(buckets Buckets) (Buckets, error) {
	seen := make(map[string]bool, len(buckets))
	for i := range buckets {
		if buckets[i].DisplayName == "" {
			buckets[i].DisplayName = buckets[i].Name
		}
		if err := buckets[i].Validate(); err != nil {
			return nil, err
		}
		if seen[buckets[i].ID] {
			return nil, fmt.Errorf("duplicate bucket id %q", buckets[i].ID)
		}
		seen[buckets[i].ID] = true
	}
	return buckets, nil
}
