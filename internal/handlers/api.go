// Package handlers exposes the bucket file-manager HTTP surface. Every route
// resolves a bucket by id, builds the matching storage backend, performs one
// logical operation, and maps the outcome to a status plus JSON body.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bucketpilot/bucketpilot/internal/config"
	"github.com/bucketpilot/bucketpilot/internal/storage"
)

// newBackend is swapped out in tests.
var newBackend = storage.New

// API carries the loaded bucket registry across requests.
type API struct {
	Buckets config.Buckets
}

func NewAPI(buckets config.Buckets) *API {
	return &API{Buckets: buckets}
}

// Register wires the bucket-scoped routes onto a (possibly auth-gated) group.
func (a *API) Register(r gin.IRouter) {
	r.GET("/buckets", a.ListBuckets)

	bucket := r.Group("/buckets/:bucketId")
	bucket.GET("/objects", a.ListObjects)
	bucket.POST("/objects", a.UploadObject)
	bucket.GET("/objects/*key", a.DownloadObject)
	bucket.DELETE("/objects/*key", a.DeleteObject)
	bucket.POST("/objects/delete-batch", a.DeleteObjectsBatch)
	bucket.POST("/folders", a.CreateFolder)
	bucket.DELETE("/folders", a.DeleteFolder)
}

// ListBuckets returns the client-safe view of every configured bucket.
func (a *API) ListBuckets(c *gin.Context) {
	summaries := make([]config.BucketSummary, 0, len(a.Buckets))
	for _, cfg := range a.Buckets {
		summaries = append(summaries, cfg.Summary())
	}
	c.JSON(http.StatusOK, summaries)
}

// resolveBackend looks up the bucket from the route and builds its backend.
// On failure it writes the error response and returns ok=false.
func (a *API) resolveBackend(c *gin.Context) (storage.Backend, bool) {
	id := c.Param("bucketId")
	cfg, found := a.Buckets.Find(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown bucket: " + id})
		return nil, false
	}

	backend, err := newBackend(c.Request.Context(), cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return backend, true
}
