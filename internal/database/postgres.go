package database

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Marcusng88/AI-Chatbot/internal/config"
	"github.com/Marcusng88/AI-Chatbot/internal/models"
)

// InitDB initializes the PostgreSQL connection and migrates the schema.
func InitDB(config *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(config.GetDSN()), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// auto migrate schema
	db.AutoMigrate(&models.User{}, &models.Chat{}, &models.Message{}, &models.Archive{})
	return db
}
