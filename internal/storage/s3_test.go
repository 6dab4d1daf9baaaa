package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 is a minimal S3 endpoint backed by canned responses. It records
// every request so tests can assert on call sequences.
type fakeS3 struct {
	t        *testing.T
	requests []*http.Request
	bodies   []string
	handle   func(w http.ResponseWriter, r *http.Request, body string)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, string(data))
	f.handle(w, r, string(data))
}

func newTestBackend(t *testing.T, fake *fakeS3) *S3Backend {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("ak", "sk", "")),
	)
	if err != nil {
		t.Fatalf("aws config: %v", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.UsePathStyle = true
	})
	return NewS3Backend(client, "test-bucket")
}

func listXML(isTruncated bool, token string, keys ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
	sb.WriteString(fmt.Sprintf("<Name>test-bucket</Name><KeyCount>%d</KeyCount>", len(keys)))
	sb.WriteString(fmt.Sprintf("<IsTruncated>%t</IsTruncated>", isTruncated))
	if token != "" {
		sb.WriteString("<NextContinuationToken>" + token + "</NextContinuationToken>")
	}
	for _, key := range keys {
		sb.WriteString("<Contents><Key>" + key + `</Key><Size>10</Size><ETag>&quot;e&quot;</ETag>` +
			"<LastModified>2025-06-01T12:00:00.000Z</LastModified></Contents>")
	}
	sb.WriteString("</ListBucketResult>")
	return sb.String()
}

const deleteResultXML = `<?xml version="1.0" encoding="UTF-8"?><DeleteResult></DeleteResult>`

func TestListPassesThroughPagination(t *testing.T) {
	fake := &fakeS3{t: t, handle: func(w http.ResponseWriter, r *http.Request, body string) {
		q := r.URL.Query()
		if q.Get("list-type") != "2" {
			t.Errorf("expected list-type=2, got %q", q.Get("list-type"))
		}
		if q.Get("delimiter") != "/" {
			t.Errorf("expected delimiter=/, got %q", q.Get("delimiter"))
		}
		if q.Get("max-keys") != "2" {
			t.Errorf("expected max-keys=2, got %q", q.Get("max-keys"))
		}
		if q.Get("continuation-token") == "" {
			w.Write([]byte(listXML(true, "next-page", "a.txt", "b.txt")))
			return
		}
		if q.Get("continuation-token") != "next-page" {
			t.Errorf("unexpected token %q", q.Get("continuation-token"))
		}
		w.Write([]byte(listXML(false, "", "c.txt", "d.txt", "e.txt")))
	}}
	backend := newTestBackend(t, fake)

	page, err := backend.List(context.Background(), ListOptions{MaxKeys: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !page.IsTruncated || page.NextContinuationToken != "next-page" {
		t.Fatalf("first page: truncated=%t token=%q", page.IsTruncated, page.NextContinuationToken)
	}
	if len(page.Objects) != 2 {
		t.Fatalf("first page has %d objects, want 2", len(page.Objects))
	}

	page2, err := backend.List(context.Background(), ListOptions{MaxKeys: 2, ContinuationToken: page.NextContinuationToken})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if page2.IsTruncated || page2.NextContinuationToken != "" {
		t.Fatalf("second page: truncated=%t token=%q", page2.IsTruncated, page2.NextContinuationToken)
	}
	if len(page2.Objects) != 3 {
		t.Fatalf("second page has %d objects, want 3", len(page2.Objects))
	}
}

func TestDeleteBatchChunks(t *testing.T) {
	var deleteCalls int
	fake := &fakeS3{t: t, handle: func(w http.ResponseWriter, r *http.Request, body string) {
		if r.Method != http.MethodPost || !r.URL.Query().Has("delete") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		deleteCalls++
		if n := strings.Count(body, "<Key>"); n > maxBatchDelete {
			t.Errorf("delete call %d carries %d keys, exceeds %d", deleteCalls, n, maxBatchDelete)
		}
		w.Write([]byte(deleteResultXML))
	}}
	backend := newTestBackend(t, fake)

	keys := make([]string, 2345)
	for i := range keys {
		keys[i] = fmt.Sprintf("bulk/item-%04d", i)
	}

	deleted, err := backend.DeleteBatch(context.Background(), keys)
	if err != nil {
		t.Fatalf("DeleteBatch: %v", err)
	}
	if deleted != len(keys) {
		t.Errorf("deleted = %d, want %d", deleted, len(keys))
	}
	if deleteCalls != 3 {
		t.Errorf("expected 3 provider calls, got %d", deleteCalls)
	}
}

func TestDeleteFolderDrainsAllPages(t *testing.T) {
	var listCalls, deleteCalls int
	fake := &fakeS3{t: t, handle: func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case r.Method == http.MethodGet:
			listCalls++
			if got := r.URL.Query().Get("prefix"); got != "stuff/" {
				t.Errorf("list prefix = %q, want stuff/", got)
			}
			if r.URL.Query().Get("continuation-token") == "" {
				w.Write([]byte(listXML(true, "t2", "stuff/", "stuff/a.txt")))
			} else {
				w.Write([]byte(listXML(false, "", "stuff/b.txt", "stuff/sub/c.txt")))
			}
		case r.Method == http.MethodPost && r.URL.Query().Has("delete"):
			deleteCalls++
			if n := strings.Count(body, "<Key>"); n != 4 {
				t.Errorf("batch carries %d keys, want 4", n)
			}
			w.Write([]byte(deleteResultXML))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
	}}
	backend := newTestBackend(t, fake)

	deleted, err := backend.DeleteFolder(context.Background(), "stuff")
	if err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if deleted != 4 {
		t.Errorf("deleted = %d, want 4", deleted)
	}
	if listCalls != 2 || deleteCalls != 1 {
		t.Errorf("listCalls=%d deleteCalls=%d, want 2 and 1", listCalls, deleteCalls)
	}
}

func TestDeleteFolderMarkerOnly(t *testing.T) {
	fake := &fakeS3{t: t, handle: func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(listXML(false, "", "empty/")))
		case r.Method == http.MethodPost && r.URL.Query().Has("delete"):
			w.Write([]byte(deleteResultXML))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
	}}
	backend := newTestBackend(t, fake)

	deleted, err := backend.DeleteFolder(context.Background(), "empty/")
	if err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1 (the marker)", deleted)
	}
}

func TestDeleteFolderNothingListed(t *testing.T) {
	var objectDeletes int
	fake := &fakeS3{t: t, handle: func(w http.ResponseWriter, r *http.Request, body string) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(listXML(false, "")))
		case http.MethodDelete:
			objectDeletes++
			if !strings.HasSuffix(r.URL.Path, "/gone/") {
				t.Errorf("expected marker delete for gone/, got %s", r.URL.Path)
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
	}}
	backend := newTestBackend(t, fake)

	deleted, err := backend.DeleteFolder(context.Background(), "gone")
	if err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
	if objectDeletes != 1 {
		t.Errorf("expected one fallback marker delete, got %d", objectDeletes)
	}
}

func TestCreateFolderNormalizesMarker(t *testing.T) {
	fake := &fakeS3{t: t, handle: func(w http.ResponseWriter, r *http.Request, body string) {
		if r.Method != http.MethodPut {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		if !strings.HasSuffix(r.URL.Path, "/reports/2025/") {
			t.Errorf("marker path = %s, want .../reports/2025/", r.URL.Path)
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	}}
	backend := newTestBackend(t, fake)

	marker, err := backend.CreateFolder(context.Background(), "/reports/2025")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if marker != "reports/2025/" {
		t.Errorf("marker = %q, want reports/2025/", marker)
	}
}

func TestPresignGet(t *testing.T) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("ak", "sk", "")),
	)
	if err != nil {
		t.Fatalf("aws config: %v", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://storage.example.com")
		o.UsePathStyle = true
	})
	backend := NewS3Backend(client, "test-bucket")

	signed, err := backend.PresignGet(context.Background(), "docs/report.pdf", DefaultPresignExpiry)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}

	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("invalid presigned URL %q: %v", signed, err)
	}
	if !strings.Contains(u.Path, "test-bucket/docs/report.pdf") {
		t.Errorf("presigned path %q missing bucket/key", u.Path)
	}
	if got := u.Query().Get("X-Amz-Expires"); got != "3600" {
		t.Errorf("X-Amz-Expires = %q, want 3600", got)
	}
	if u.Query().Get("X-Amz-Signature") == "" {
		t.Error("presigned URL missing signature")
	}
}

func TestGetStreamsBody(t *testing.T) {
	payload := "hello object body"
	fake := &fakeS3{t: t, handle: func(w http.ResponseWriter, r *http.Request, body string) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		io.WriteString(w, payload)
	}}
	backend := newTestBackend(t, fake)

	obj, err := backend.Get(context.Background(), "notes/hello.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != payload {
		t.Errorf("body = %q, want %q", data, payload)
	}
	if obj.ContentType != "text/plain" {
		t.Errorf("content type = %q, want text/plain", obj.ContentType)
	}
	if obj.ContentLength != int64(len(payload)) {
		t.Errorf("content length = %d, want %d", obj.ContentLength, len(payload))
	}
}
