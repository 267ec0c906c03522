package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/Marcusng88/AI-Chatbot/internal/aisearch"
	"github.com/Marcusng88/AI-Chatbot/internal/api/handlers"
	"github.com/Marcusng88/AI-Chatbot/internal/api/middleware"
	"github.com/Marcusng88/AI-Chatbot/internal/config"
	"github.com/Marcusng88/AI-Chatbot/internal/database"
	"github.com/Marcusng88/AI-Chatbot/internal/genai"
	"github.com/Marcusng88/AI-Chatbot/internal/models"
	"github.com/Marcusng88/AI-Chatbot/internal/search"
	"github.com/Marcusng88/AI-Chatbot/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database connections
	db := database.InitDB(cfg)
	redisClient := database.InitRedis(cfg)

	// Open the archive search index and rebuild it from the database
	index, err := search.Open(cfg.SearchIndexPath)
	if err != nil {
		log.Fatal("Failed to open search index:", err)
	}
	defer index.Close()

	if err := reindexArchives(db, index); err != nil {
		log.Fatal("Failed to rebuild search index:", err)
	}

	// File store for uploaded archive materials
	files, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatal("Failed to initialize file store:", err)
	}

	// External AI service client and search agent
	genaiClient := genai.NewClient(cfg.GenAIHost, cfg.GenAIAPIKey, cfg.GenAIDefaultModel, cfg.GenAITemperature)
	agent := aisearch.NewAgent(genaiClient, index, &aisearch.GormStore{DB: db}, cfg.SearchMatchThreshold, cfg.SearchMatchCount)

	// Setup and run the server
	r := setupRouter(db, redisClient, index, files, genaiClient, agent, cfg)
	port := cfg.ServerPort

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// reindexArchives rebuilds the search index from the archives table so
// index and database stay consistent across restarts.
func reindexArchives(db *gorm.DB, index *search.Index) error {
	var archives []models.Archive
	if err := db.Find(&archives).Error; err != nil {
		return err
	}

	docs := make([]*search.IndexedArchive, len(archives))
	for i, a := range archives {
		docs[i] = handlers.ToIndexedArchive(a)
	}

	if err := index.Reindex(docs); err != nil {
		return err
	}

	log.Printf("✅ Indexed %d archives", len(docs))
	return nil
}

func setupRouter(db *gorm.DB, redisClient *redis.Client, index *search.Index, files *storage.FileStore, genaiClient *genai.Client, agent *aisearch.Agent, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// Configure CORS middleware
	headers := cors.DefaultConfig()
	headers.AllowOrigins = []string{cfg.FrontendURL}
	headers.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	headers.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	headers.ExposeHeaders = []string{"Content-Length"}
	headers.AllowCredentials = true
	r.Use(cors.New(headers))

	// Initialize handlers and middleware with dependencies
	handler := handlers.NewHandler(db, redisClient, &handlers.GormMessageStore{DB: db}, agent, index, files, genaiClient, cfg)
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	// Health check and stored file serving
	r.GET("/health", handler.Health)
	r.Static("/files", cfg.UploadDir)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", handler.RegisterHandler)
			authGroup.POST("/login", handler.LoginHandler)
		}

		// Chat routes - protected by authentication
		chats := api.Group("/chats", authMiddleware.AuthMiddleware())
		{
			chats.GET("", handler.ListChats)
			chats.POST("", handler.CreateChat)
			chats.GET("/:chatId/messages", handler.GetChatMessages)
			chats.POST("/:chatId/messages", handler.SendMessage)
		}

		// Versioned archive and search routes
		v1 := api.Group("/v1")
		{
			v1.POST("/archives", handler.CreateArchive)
			v1.GET("/archives", handler.ListArchives)
			v1.GET("/archives/:id", handler.GetArchive)
			v1.DELETE("/archives/:id", handler.DeleteArchive)

			v1.POST("/ai-search", handler.AISearch)
			v1.POST("/ai-search/stream", handler.AISearchStream)
		}
	}

	return r
}
