package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bucketpilot/bucketpilot/internal/logging"
	"github.com/bucketpilot/bucketpilot/internal/storage"
)

type createFolderRequest struct {
	FolderName    string `json:"folderName" binding:"required"`
	CurrentPrefix string `json:"currentPrefix"`
}

type deleteFolderRequest struct {
	FolderPath string `json:"folderPath" binding:"required"`
}

// CreateFolder handles POST /api/buckets/:bucketId/folders by writing a
// zero-byte marker object under the current prefix.
func (a *API) CreateFolder(c *gin.Context) {
	backend, ok := a.resolveBackend(c)
	if !ok {
		return
	}

	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "folderName is required"})
		return
	}

	name := strings.TrimSpace(req.FolderName)
	if name == "" || strings.ContainsAny(name, "/\\") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "folder name must be non-empty and contain no slashes"})
		return
	}

	folderPath, err := backend.CreateFolder(c.Request.Context(),
		storage.NormalizeFolderPrefix(req.CurrentPrefix)+name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"folderPath": folderPath, "folderName": name})
}

// DeleteFolder handles DELETE /api/buckets/:bucketId/folders: every key under
// the prefix is enumerated and batch-deleted, and the count reported back.
func (a *API) DeleteFolder(c *gin.Context) {
	backend, ok := a.resolveBackend(c)
	if !ok {
		return
	}

	var req deleteFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "folderPath is required"})
		return
	}

	deleted, err := backend.DeleteFolder(c.Request.Context(), req.FolderPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "deletedCount": deleted})
		return
	}

	logging.Logf("[API] Deleted folder %s from bucket %s (%d objects)",
		req.FolderPath, c.Param("bucketId"), deleted)
	c.JSON(http.StatusOK, gin.H{"deletedCount": deleted})
}
