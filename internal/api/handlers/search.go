package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Marcusng88/AI-Chatbot/internal/aisearch"
	"github.com/Marcusng88/AI-Chatbot/internal/search"
)

const searchCacheTTL = time.Hour

// SearchRequest is the request body for AI search.
type SearchRequest struct {
	Query      string   `json:"query" binding:"required,min=1"`
	ThreadID   string   `json:"thread_id"`
	MediaTypes []string `json:"media_types"`
	DateFrom   string   `json:"date_from"`
	DateTo     string   `json:"date_to"`
	Keywords   string   `json:"keywords"`
}

// filters converts the request's filter fields into index filters.
func (r *SearchRequest) filters(c *gin.Context) (*search.Filters, bool) {
	if len(r.MediaTypes) == 0 && r.DateFrom == "" && r.DateTo == "" && r.Keywords == "" {
		return nil, true
	}

	f := &search.Filters{
		MediaTypes: r.MediaTypes,
		Keywords:   r.Keywords,
	}

	if r.DateFrom != "" {
		t, ok := parseDate(r.DateFrom)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_from: " + r.DateFrom})
			return nil, false
		}
		f.DateFrom = t
	}
	if r.DateTo != "" {
		t, ok := parseDate(r.DateTo)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_to: " + r.DateTo})
			return nil, false
		}
		f.DateTo = t
	}

	return f, true
}

// AISearch runs an AI-powered archive search and returns only structured
// archive data. When nothing matches, the response carries an empty list
// and an explanatory message.
func (h *handler) AISearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filters, ok := req.filters(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	cacheKey := searchCacheKey(&req)

	// Serve a cached response for repeated queries
	if cached := h.getCachedSearch(ctx, cacheKey); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	result, err := h.agent.Search(ctx, req.Query, filters)
	if err != nil {
		log.Printf("❌ Search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Search failed: %v", err)})
		return
	}

	h.cacheSearch(ctx, cacheKey, result)

	c.JSON(http.StatusOK, result)
}

// AISearchStream runs a search with progressive updates over SSE.
//
// Event order: query_received, searching, results (repeated as archives
// are found), done, complete. On failure a single error event is sent.
func (h *handler) AISearchStream(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filters, ok := req.filters(c)
	if !ok {
		return
	}

	// Set headers for SSE
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Immediate acknowledgment so the UI can clear its input
	writeSSE(c, aisearch.Event{
		Type:      "query_received",
		Query:     req.Query,
		ThreadID:  req.ThreadID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	var total int
	failed := false
	h.agent.SearchStream(c.Request.Context(), req.Query, req.ThreadID, filters, func(event aisearch.Event) {
		if event.Type == "done" {
			total = event.Total
		}
		if event.Type == "error" {
			failed = true
		}
		writeSSE(c, event)
	})

	if failed {
		return
	}

	// Final completion event with the no-results message when needed
	complete := aisearch.Event{
		Type:  "complete",
		Query: req.Query,
		Total: total,
	}
	if total == 0 {
		complete.Message = aisearch.NoResultsMessage
	}
	writeSSE(c, complete)
}

func writeSSE(c *gin.Context, event aisearch.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal SSE event: %v", err)
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}

// searchCacheKey derives a stable cache key from the query and filters.
// The thread ID is deliberately excluded: identical searches share results.
func searchCacheKey(req *SearchRequest) string {
	payload, _ := json.Marshal(struct {
		Query      string   `json:"q"`
		MediaTypes []string `json:"mt,omitempty"`
		DateFrom   string   `json:"df,omitempty"`
		DateTo     string   `json:"dt,omitempty"`
		Keywords   string   `json:"kw,omitempty"`
	}{req.Query, req.MediaTypes, req.DateFrom, req.DateTo, req.Keywords})
	return fmt.Sprintf("aisearch:%x", sha256.Sum256(payload))
}

func (h *handler) getCachedSearch(ctx context.Context, cacheKey string) *aisearch.Response {
	if h.redisClient == nil {
		return nil
	}

	cached, err := h.redisClient.Get(ctx, cacheKey).Result()
	if err != nil {
		return nil
	}

	var resp aisearch.Response
	if err := json.Unmarshal([]byte(cached), &resp); err != nil {
		log.Printf("Failed to decode cached search response: %v", err)
		return nil
	}
	return &resp
}

func (h *handler) cacheSearch(ctx context.Context, cacheKey string, resp *aisearch.Response) {
	if h.redisClient == nil {
		return
	}

	respJSON, err := json.Marshal(resp)
	if err != nil {
		log.Printf("Failed to marshal search response: %v", err)
		return
	}
	if err := h.redisClient.Set(ctx, cacheKey, respJSON, searchCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache search response: %v", err)
	}
}
