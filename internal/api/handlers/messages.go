package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Marcusng88/AI-Chatbot/internal/models"
)

// MessageStore persists chat messages.
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)
}

// GormMessageStore is the database-backed MessageStore.
type GormMessageStore struct {
	DB *gorm.DB
}

func (s *GormMessageStore) Create(ctx context.Context, msg *models.Message) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListByChat returns a chat's messages in creation order.
func (s *GormMessageStore) ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	if err := s.DB.WithContext(ctx).Where("chat_id = ?", chatID).Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
