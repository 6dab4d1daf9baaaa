package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/bucketpilot/bucketpilot/internal/config"
	"github.com/bucketpilot/bucketpilot/internal/logging"
	"github.com/bucketpilot/bucketpilot/internal/storage"
)

const defaultPageSize = 50

// maxMultipartMemory bounds how much of a multipart form is held in memory
// while parsing; larger file parts spill to temp files.
const maxMultipartMemory = 32 << 20

// ListObjects handles GET /api/buckets/:bucketId/objects.
// Query: maxKeys, continuationToken, prefix.
func (a *API) ListObjects(c *gin.Context) {
	backend, ok := a.resolveBackend(c)
	if !ok {
		return
	}

	maxKeys := defaultPageSize
	if raw := c.Query("maxKeys"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "maxKeys must be a positive integer"})
			return
		}
		maxKeys = parsed
	}

	page, err := backend.List(c.Request.Context(), storage.ListOptions{
		Prefix:            storage.SanitizeKey(c.Query("prefix")),
		ContinuationToken: c.Query("continuationToken"),
		MaxKeys:           int32(maxKeys),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, page)
}

// UploadObject handles POST /api/buckets/:bucketId/objects.
// Multipart form: file (required), prefix (optional folder to upload into).
func (a *API) UploadObject(c *gin.Context) {
	backend, ok := a.resolveBackend(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse multipart form"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	filename := path.Base(strings.ReplaceAll(fileHeader.Filename, "\\", "/"))
	if filename == "" || filename == "." || filename == "/" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		return
	}

	key := storage.NormalizeFolderPrefix(c.PostForm("prefix")) + filename

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer src.Close()

	body, contentType, err := sniffContentType(src, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return
	}

	if err := backend.Put(c.Request.Context(), key, body, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "upload successful",
		"filename": filename,
		"key":      key,
	})
}

// sniffContentType resolves the upload's content type. The multipart header
// wins when it says something specific; otherwise the first bytes of the
// body are sniffed and stitched back onto the stream.
func sniffContentType(src io.Reader, declared string) (io.Reader, string, error) {
	if declared != "" && declared != "application/octet-stream" {
		return src, declared, nil
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, "", err
	}
	head = head[:n]

	return io.MultiReader(bytes.NewReader(head), src), mimetype.Detect(head).String(), nil
}

// DownloadObject handles GET /api/buckets/:bucketId/objects/*key.
// With presigned=true it returns a time-limited URL instead of streaming
// the body through the server.
func (a *API) DownloadObject(c *gin.Context) {
	backend, ok := a.resolveBackend(c)
	if !ok {
		return
	}

	key := storage.SanitizeKey(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing object key"})
		return
	}

	if c.Query("presigned") == "true" {
		expires := time.Duration(config.GetInt("PRESIGN_EXPIRY_SECONDS", 3600)) * time.Second
		url, err := backend.PresignGet(c.Request.Context(), key, expires)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int(expires.Seconds())})
		return
	}

	obj, err := backend.Get(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	}

	c.DataFromReader(http.StatusOK, obj.ContentLength, contentType, obj.Body, headers)
}

// DeleteObject handles DELETE /api/buckets/:bucketId/objects/*key.
func (a *API) DeleteObject(c *gin.Context) {
	backend, ok := a.resolveBackend(c)
	if !ok {
		return
	}

	key := storage.SanitizeKey(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing object key"})
		return
	}

	if err := backend.Delete(c.Request.Context(), key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logging.Logf("[API] Deleted object %s from bucket %s", key, c.Param("bucketId"))
	c.JSON(http.StatusOK, gin.H{"message": "object deleted", "key": key})
}

type deleteBatchRequest struct {
	Keys []string `json:"keys" binding:"required,min=1"`
}

// DeleteObjectsBatch handles POST /api/buckets/:bucketId/objects/delete-batch.
// Chunking to the provider's 1000-key limit happens in the backend.
func (a *API) DeleteObjectsBatch(c *gin.Context) {
	backend, ok := a.resolveBackend(c)
	if !ok {
		return
	}

	var req deleteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keys is required and must be non-empty"})
		return
	}

	keys := make([]string, 0, len(req.Keys))
	for _, key := range req.Keys {
		if sanitized := storage.SanitizeKey(key); sanitized != "" {
			keys = append(keys, sanitized)
		}
	}
	if len(keys) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid keys given"})
		return
	}

	deleted, err := backend.DeleteBatch(c.Request.Context(), keys)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "deletedCount": deleted})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "objects deleted", "deletedCount": deleted})
}
