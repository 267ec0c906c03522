package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marcusng88/AI-Chatbot/internal/config"
	"github.com/Marcusng88/AI-Chatbot/internal/genai"
	"github.com/Marcusng88/AI-Chatbot/internal/search"
)

func TestHealthIndexUnavailable(t *testing.T) {
	index, err := search.Open("")
	require.NoError(t, err)
	require.NoError(t, index.Close())

	h := NewHandler(nil, nil, nil, nil, index, nil, genai.NewClient("", "", "", 0), &config.Config{})
	router := gin.New()
	router.GET("/health", h.Health)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := performRequest(router, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "search index unavailable")
}
