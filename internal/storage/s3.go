package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/bucketpilot/bucketpilot/internal/logging"
)

// S3Backend serves one bucket through the AWS SDK. It also backs the R2
// adapter, since R2 speaks the same API.
type S3Backend struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	bucket   string
}

func NewS3Backend(client *s3.Client, bucket string) *S3Backend {
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		// 5MB parts, uploaded concurrently, so large bodies never buffer
		// fully in memory.
		u.PartSize = 5 * 1024 * 1024
		u.Concurrency = 5
	})

	return &S3Backend{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: uploader,
		bucket:   bucket,
	}
}

func (b *S3Backend) List(ctx context.Context, opts ListOptions) (*Page, error) {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 || maxKeys > maxListKeys {
		maxKeys = maxListKeys
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(maxKeys),
	}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	}

	out, err := b.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects with prefix %q: %w", opts.Prefix, err)
	}

	return pageFromList(out, opts.Prefix), nil
}

func (b *S3Backend) Get(ctx context.Context, key string) (*ObjectReader, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}

	return &ObjectReader{
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: aws.ToInt64(out.ContentLength),
		LastModified:  out.LastModified,
	}, nil
}

func (b *S3Backend) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignExpiry
	}
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return req.URL, nil
}

func (b *S3Backend) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   data,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	result, err := b.uploader.Upload(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}

	logging.Logf("[STORAGE] Put: s3://%s/%s (ETag: %s)", b.bucket, key, aws.ToString(result.ETag))
	return nil
}

func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (b *S3Backend) DeleteBatch(ctx context.Context, keys []string) (int, error) {
	deleted := 0
	for _, chunk := range chunkKeys(keys, maxBatchDelete) {
		ids := make([]types.ObjectIdentifier, 0, len(chunk))
		for _, key := range chunk {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to batch delete %d objects: %w", len(chunk), err)
		}

		deleted += len(chunk) - len(out.Errors)
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return deleted, fmt.Errorf("failed to delete object %s: %s",
				aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return deleted, nil
}

func (b *S3Backend) CreateFolder(ctx context.Context, path string) (string, error) {
	marker := NormalizeFolderPrefix(path)
	if marker == "" {
		return "", fmt.Errorf("empty folder path")
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(marker),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", marker, err)
	}

	logging.Logf("[STORAGE] CreateFolder: s3://%s/%s", b.bucket, marker)
	return marker, nil
}

func (b *S3Backend) DeleteFolder(ctx context.Context, path string) (int, error) {
	prefix := NormalizeFolderPrefix(path)
	if prefix == "" {
		return 0, fmt.Errorf("empty folder path")
	}

	// Enumerate first, then batch-delete. Not transactional: writers racing
	// this sequence can leave stragglers under the prefix.
	var keys []string
	var token *string
	for {
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(b.bucket),
			Prefix: aws.String(prefix),
		}
		if token != nil {
			input.ContinuationToken = token
		}

		out, err := b.client.ListObjectsV2(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("failed to list folder %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	if len(keys) == 0 {
		// Nothing listed under the prefix. Delete the bare marker in case
		// one exists without having shown up above.
		if err := b.Delete(ctx, prefix); err != nil {
			return 0, err
		}
		return 0, nil
	}

	deleted, err := b.DeleteBatch(ctx, keys)
	if err != nil {
		return deleted, err
	}
	logging.Logf("[STORAGE] DeleteFolder: s3://%s/%s (%d objects)", b.bucket, prefix, deleted)
	return deleted, nil
}
