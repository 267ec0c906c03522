package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Marcusng88/AI-Chatbot/internal/aisearch"
	"github.com/Marcusng88/AI-Chatbot/internal/models"
	"github.com/Marcusng88/AI-Chatbot/internal/search"
	"github.com/Marcusng88/AI-Chatbot/internal/storage"
)

// ArchiveListResponse wraps a page of archives.
type ArchiveListResponse struct {
	Archives []aisearch.ArchiveResult `json:"archives"`
	Total    int64                    `json:"total"`
}

// dateLayouts are the formats accepted for archive dates and filter bounds.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CreateArchive ingests a new archive: it stores the uploaded files, asks
// the AI service for a content summary, persists the record and indexes
// it for search.
func (h *handler) CreateArchive(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form", "details": err.Error()})
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	description := strings.TrimSpace(c.PostForm("description"))

	mediaTypes := splitList(c.PostForm("media_types"))
	if len(mediaTypes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one media type is required"})
		return
	}
	for _, mt := range mediaTypes {
		if !models.IsValidMediaType(mt) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown media type: " + mt})
			return
		}
	}

	tags := splitList(c.PostForm("tags"))

	var dates []string
	for _, d := range splitList(c.PostForm("dates")) {
		t, ok := parseDate(d)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date: " + d})
			return
		}
		dates = append(dates, t.UTC().Format(time.RFC3339))
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one file must be uploaded"})
		return
	}

	// Store every uploaded file before touching the database
	var storagePaths, fileURIs, fileNames []string
	for _, file := range files {
		storagePath, err := h.files.Save(file)
		if err != nil {
			log.Printf("Failed to store upload %s: %v", file.Filename, err)
			h.cleanupStoredFiles(storagePaths)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file " + file.Filename})
			return
		}
		storagePaths = append(storagePaths, storagePath)
		fileURIs = append(fileURIs, storage.FileURI(storagePath))
		fileNames = append(fileNames, file.Filename)
	}

	// Generate the AI analysis summary; fall back to the curator's
	// description when the AI service is not configured
	summary := description
	if h.genaiClient.Enabled() {
		summary, err = h.genaiClient.AnalyzeArchive(c.Request.Context(), title, description, mediaTypes, tags, fileNames)
		if err != nil {
			log.Printf("❌ Archive analysis failed: %v", err)
			h.cleanupStoredFiles(storagePaths)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze content"})
			return
		}
	}

	archive := models.Archive{
		ID:           uuid.New(),
		Title:        title,
		Description:  description,
		Summary:      summary,
		MediaTypes:   mediaTypes,
		Tags:         tags,
		Dates:        dates,
		StoragePaths: storagePaths,
		FileURIs:     fileURIs,
	}

	if err := h.db.Create(&archive).Error; err != nil {
		log.Printf("Failed to create archive: %v", err)
		h.cleanupStoredFiles(storagePaths)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store archive metadata"})
		return
	}

	if err := h.index.IndexArchive(ToIndexedArchive(archive)); err != nil {
		log.Printf("Failed to index archive %s: %v", archive.ID, err)
	}

	c.JSON(http.StatusCreated, toArchiveResult(archive))
}

// ListArchives returns archives ordered by creation time, newest first.
func (h *handler) ListArchives(c *gin.Context) {
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o > 0 {
		offset = o
	}

	var total int64
	if err := h.db.Model(&models.Archive{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count archives"})
		return
	}

	var archives []models.Archive
	if err := h.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&archives).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch archives"})
		return
	}

	results := make([]aisearch.ArchiveResult, len(archives))
	for i, a := range archives {
		results[i] = toArchiveResult(a)
	}

	c.JSON(http.StatusOK, ArchiveListResponse{Archives: results, Total: total})
}

// GetArchive returns a single archive by ID.
func (h *handler) GetArchive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid archive ID"})
		return
	}

	var archive models.Archive
	if err := h.db.First(&archive, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Archive not found"})
		return
	}

	c.JSON(http.StatusOK, toArchiveResult(archive))
}

// DeleteArchive removes an archive, its index entry and its stored files.
func (h *handler) DeleteArchive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid archive ID"})
		return
	}

	var archive models.Archive
	if err := h.db.First(&archive, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Archive not found"})
		return
	}

	if err := h.db.Delete(&archive).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete archive"})
		return
	}

	if err := h.index.Delete(id.String()); err != nil {
		log.Printf("Failed to remove archive %s from index: %v", id, err)
	}
	h.cleanupStoredFiles(archive.StoragePaths)

	c.Status(http.StatusNoContent)
}

func (h *handler) cleanupStoredFiles(storagePaths []string) {
	for _, p := range storagePaths {
		if err := h.files.Remove(p); err != nil {
			log.Printf("Failed to remove stored file %s: %v", p, err)
		}
	}
}

// splitList parses a comma-separated form value into trimmed entries.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func toArchiveResult(a models.Archive) aisearch.ArchiveResult {
	result := aisearch.ArchiveResult{
		ID:           a.ID.String(),
		Title:        a.Title,
		Description:  a.Description,
		MediaTypes:   a.MediaTypes,
		Dates:        a.Dates,
		Tags:         a.Tags,
		FileURIs:     a.FileURIs,
		StoragePaths: a.StoragePaths,
		Summary:      a.Summary,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !a.UpdatedAt.IsZero() {
		result.UpdatedAt = a.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return result
}

func ToIndexedArchive(a models.Archive) *search.IndexedArchive {
	doc := &search.IndexedArchive{
		ID:          a.ID.String(),
		Title:       a.Title,
		Description: a.Description,
		Summary:     a.Summary,
		Tags:        a.Tags,
		MediaTypes:  a.MediaTypes,
		CreatedAt:   a.CreatedAt,
	}

	// Index the earliest archive date for date range filtering
	for _, d := range a.Dates {
		if t, ok := parseDate(d); ok {
			if doc.Date.IsZero() || t.Before(doc.Date) {
				doc.Date = t
			}
		}
	}

	return doc
}
