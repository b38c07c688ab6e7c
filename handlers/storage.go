package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"pitstop/services/storage"

	"github.com/gin-gonic/gin"
)

// StorageHandler serves the evidence media endpoints used by the jockey and
// workshop apps.
type StorageHandler struct {
	StorageSvc storage.StorageService
}

func NewStorageHandler(svc storage.StorageService) *StorageHandler {
	return &StorageHandler{StorageSvc: svc}
}

// allowedFolders maps the public evidence kinds onto storage folders.
var allowedFolders = map[string]string{
	"photo":     storage.FolderHandoverPhotos,
	"signature": storage.FolderHandoverSignature,
	"extension": storage.FolderExtensionEvidence,
}

// UploadEvidence handles POST /api/evidence/:kind. It returns the public ID
// the caller then embeds in handover evidence or an extension proposal.
func (h *StorageHandler) UploadEvidence(c *gin.Context) {
	folder, ok := allowedFolders[c.Param("kind")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evidence kind; allowed values are 'photo', 'signature' and 'extension'"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file not provided", "detail": err.Error()})
		return
	}

	tempFilePath := filepath.Join(os.TempDir(), fileHeader.Filename)
	if err := c.SaveUploadedFile(fileHeader, tempFilePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file", "detail": err.Error()})
		return
	}
	defer os.Remove(tempFilePath)

	publicID, err := h.StorageSvc.UploadFile(c.Request.Context(), tempFilePath, folder)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload file", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_id": publicID})
}

// GetEvidenceURL handles GET /api/evidence/:kind/url?public_id=...&resource_type=image.
// The returned link is signed and expires after 15 minutes.
func (h *StorageHandler) GetEvidenceURL(c *gin.Context) {
	publicID := c.Query("public_id")
	if publicID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "public_id is required"})
		return
	}
	resourceType := c.DefaultQuery("resource_type", "image")

	url, err := h.StorageSvc.GetSecureDownloadURL(c.Request.Context(), resourceType, publicID, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build URL", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
