package storage

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// maxBatchDelete is the provider's per-call DeleteObjects limit.
	maxBatchDelete = 1000
	// maxListKeys is the provider's per-page listing limit.
	maxListKeys = 1000
)

// pageFromList converts one ListObjectsV2 page into the uniform Page shape.
// Common prefixes become folder pseudo-objects; contents become file objects,
// skipping zero-byte folder markers (including the prefix's own marker).
func pageFromList(out *s3.ListObjectsV2Output, prefix string) *Page {
	page := &Page{
		Objects:               make([]Object, 0, len(out.CommonPrefixes)+len(out.Contents)),
		NextContinuationToken: aws.ToString(out.NextContinuationToken),
		IsTruncated:           aws.ToBool(out.IsTruncated),
		TotalCount:            aws.ToInt32(out.KeyCount),
	}

	for _, cp := range out.CommonPrefixes {
		full := aws.ToString(cp.Prefix)
		name := displayName(full, prefix)
		if name == "" {
			continue
		}
		page.Objects = append(page.Objects, Object{
			ID:       objectID(full, ""),
			Name:     name,
			Path:     full,
			Type:     "folder",
			IsFolder: true,
		})
	}

	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		size := aws.ToInt64(obj.Size)
		if key == prefix || isFolderMarker(key, size) {
			continue
		}
		page.Objects = append(page.Objects, Object{
			ID:           objectID(key, aws.ToString(obj.ETag)),
			Name:         displayName(key, prefix),
			Path:         key,
			Type:         contentTypeForKey(key),
			Size:         size,
			LastModified: obj.LastModified,
		})
	}

	return page
}

// chunkKeys splits keys into runs of at most n for batch delete calls.
func chunkKeys(keys []string, n int) [][]string {
	if n <= 0 || len(keys) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(keys)+n-1)/n)
	for len(keys) > n {
		chunks = append(chunks, keys[:n])
		keys = keys[n:]
	}
	return append(chunks, keys)
}
