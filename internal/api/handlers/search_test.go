package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marcusng88/AI-Chatbot/internal/aisearch"
	"github.com/Marcusng88/AI-Chatbot/internal/config"
	"github.com/Marcusng88/AI-Chatbot/internal/genai"
	"github.com/Marcusng88/AI-Chatbot/internal/models"
	"github.com/Marcusng88/AI-Chatbot/internal/search"
	"github.com/Marcusng88/AI-Chatbot/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubStore serves archive records from memory so search handlers can be
// exercised without a database.
type stubStore struct {
	archives map[string]models.Archive
	err      error
}

func (s *stubStore) FindByIDs(ctx context.Context, ids []string) ([]models.Archive, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Archive
	for _, id := range ids {
		if a, ok := s.archives[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// memMessageStore is an in-memory MessageStore for handler tests.
type memMessageStore struct {
	messages  []models.Message
	createErr error
}

func (s *memMessageStore) Create(ctx context.Context, msg *models.Message) error {
	if s.createErr != nil {
		return s.createErr
	}
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memMessageStore) ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	var out []models.Message
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

type testEnv struct {
	router    *gin.Engine
	index     *search.Index
	store     *stubStore
	messages  *memMessageStore
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	index, err := search.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	uploadDir := t.TempDir()
	files, err := storage.NewFileStore(uploadDir)
	require.NoError(t, err)

	store := &stubStore{archives: map[string]models.Archive{}}
	messages := &memMessageStore{}
	genaiClient := genai.NewClient("", "", "", 0)
	agent := aisearch.NewAgent(genaiClient, index, store, 0.3, 5)

	cfg := &config.Config{JWTSecret: "test-secret"}
	h := NewHandler(nil, nil, messages, agent, index, files, genaiClient, cfg)

	router := gin.New()
	router.POST("/api/v1/archives", h.CreateArchive)
	router.GET("/api/v1/archives/:id", h.GetArchive)
	router.DELETE("/api/v1/archives/:id", h.DeleteArchive)
	router.POST("/api/v1/ai-search", h.AISearch)
	router.POST("/api/v1/ai-search/stream", h.AISearchStream)
	router.GET("/api/chats/:chatId/messages", h.GetChatMessages)
	router.POST("/api/chats/:chatId/messages", h.SendMessage)

	return &testEnv{router: router, index: index, store: store, messages: messages, uploadDir: uploadDir}
}

func (e *testEnv) addArchive(t *testing.T, title, summary string, mediaTypes []string) string {
	t.Helper()
	id := uuid.New()
	e.store.archives[id.String()] = models.Archive{
		ID:         id,
		Title:      title,
		Summary:    summary,
		MediaTypes: models.StringList(mediaTypes),
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, e.index.IndexArchive(&search.IndexedArchive{
		ID:         id.String(),
		Title:      title,
		Summary:    summary,
		MediaTypes: mediaTypes,
	}))
	return id.String()
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAISearchMissingQuery(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.router, "/api/v1/ai-search", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAISearchInvalidDateFilter(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.router, "/api/v1/ai-search", gin.H{
		"query":     "batik",
		"date_from": "not-a-date",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "date_from")
}

func TestAISearchReturnsArchives(t *testing.T) {
	env := newTestEnv(t)
	id := env.addArchive(t, "Batik Collection", "Hand-dyed batik textiles.", []string{"image"})

	w := postJSON(t, env.router, "/api/v1/ai-search", gin.H{"query": "batik"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp aisearch.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, id, resp.Archives[0].ID)
	assert.Equal(t, "batik", resp.Query)
	assert.Empty(t, resp.Message)
}

func TestAISearchNoResultsMessage(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.router, "/api/v1/ai-search", gin.H{"query": "woodcarving"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp aisearch.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
	assert.Empty(t, resp.Archives)
	assert.Equal(t, aisearch.NoResultsMessage, resp.Message)
}

func TestAISearchMediaTypeFilter(t *testing.T) {
	env := newTestEnv(t)
	env.addArchive(t, "Batik Photos", "Photographs of batik patterns.", []string{"image"})
	videoID := env.addArchive(t, "Batik Workshop", "Video of a batik workshop.", []string{"video"})

	w := postJSON(t, env.router, "/api/v1/ai-search", gin.H{
		"query":       "batik",
		"media_types": []string{"video"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp aisearch.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, videoID, resp.Archives[0].ID)
}

// decodeSSE parses "data: {...}" frames from an SSE response body.
func decodeSSE(t *testing.T, body string) []aisearch.Event {
	t.Helper()
	var events []aisearch.Event
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e aisearch.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		events = append(events, e)
	}
	return events
}

func TestAISearchStreamEventOrder(t *testing.T) {
	env := newTestEnv(t)
	id := env.addArchive(t, "Batik Collection", "Hand-dyed batik textiles.", []string{"image"})

	w := postJSON(t, env.router, "/api/v1/ai-search/stream", gin.H{
		"query":     "batik",
		"thread_id": "thread-1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := decodeSSE(t, w.Body.String())
	require.GreaterOrEqual(t, len(events), 4)

	assert.Equal(t, "query_received", events[0].Type)
	assert.Equal(t, "batik", events[0].Query)
	assert.Equal(t, "thread-1", events[0].ThreadID)
	assert.NotEmpty(t, events[0].Timestamp)

	assert.Equal(t, "searching", events[1].Type)

	done := events[len(events)-2]
	assert.Equal(t, "done", done.Type)
	require.Equal(t, 1, done.Total)
	assert.Equal(t, id, done.Archives[0].ID)

	complete := events[len(events)-1]
	assert.Equal(t, "complete", complete.Type)
	assert.Equal(t, 1, complete.Total)
	assert.Empty(t, complete.Message)
}

func TestAISearchStreamNoResults(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.router, "/api/v1/ai-search/stream", gin.H{"query": "woodcarving"})
	require.Equal(t, http.StatusOK, w.Code)

	events := decodeSSE(t, w.Body.String())
	require.NotEmpty(t, events)

	complete := events[len(events)-1]
	assert.Equal(t, "complete", complete.Type)
	assert.Equal(t, 0, complete.Total)
	assert.Equal(t, aisearch.NoResultsMessage, complete.Message)
}

func TestAISearchStreamMissingQuery(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.router, "/api/v1/ai-search/stream", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchCacheKeyStable(t *testing.T) {
	a := &SearchRequest{Query: "batik", MediaTypes: []string{"image"}}
	b := &SearchRequest{Query: "batik", MediaTypes: []string{"image"}}
	assert.Equal(t, searchCacheKey(a), searchCacheKey(b))
}

func TestSearchCacheKeyIgnoresThread(t *testing.T) {
	a := &SearchRequest{Query: "batik", ThreadID: "thread-1"}
	b := &SearchRequest{Query: "batik", ThreadID: "thread-2"}
	assert.Equal(t, searchCacheKey(a), searchCacheKey(b))
}

func TestSearchCacheKeyVariesByFilters(t *testing.T) {
	a := &SearchRequest{Query: "batik"}
	b := &SearchRequest{Query: "batik", Keywords: "terengganu"}
	assert.NotEqual(t, searchCacheKey(a), searchCacheKey(b))
}
