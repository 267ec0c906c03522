package handlers

import (
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/Marcusng88/AI-Chatbot/internal/aisearch"
	"github.com/Marcusng88/AI-Chatbot/internal/config"
	"github.com/Marcusng88/AI-Chatbot/internal/genai"
	"github.com/Marcusng88/AI-Chatbot/internal/search"
	"github.com/Marcusng88/AI-Chatbot/internal/storage"
)

// handler is the core struct with all dependencies
type handler struct {
	db          *gorm.DB
	redisClient *redis.Client
	messages    MessageStore
	agent       *aisearch.Agent
	index       *search.Index
	files       *storage.FileStore
	genaiClient *genai.Client
	config      *config.Config
}

// NewHandler creates a new handler instance
func NewHandler(db *gorm.DB, redisClient *redis.Client, messages MessageStore, agent *aisearch.Agent, index *search.Index, files *storage.FileStore, genaiClient *genai.Client, config *config.Config) *handler {
	return &handler{
		db:          db,
		redisClient: redisClient,
		messages:    messages,
		agent:       agent,
		index:       index,
		files:       files,
		genaiClient: genaiClient,
		config:      config,
	}
}
