package storage

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// r2Region is the only region R2 accepts.
const r2Region = "auto"

// R2Backend serves a Cloudflare R2 bucket. R2 exposes the S3 API at an
// account-scoped endpoint, so the adapter shares the S3 implementation and
// differs only in how the factory builds its client.
type R2Backend struct {
	*S3Backend
}

func NewR2Backend(client *s3.Client, bucket string) *R2Backend {
	return &R2Backend{S3Backend: NewS3Backend(client, bucket)}
}

// R2Endpoint returns the account-scoped R2 endpoint URL.
func R2Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}
