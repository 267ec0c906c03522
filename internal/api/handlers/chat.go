package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Marcusng88/AI-Chatbot/internal/aisearch"
	"github.com/Marcusng88/AI-Chatbot/internal/models"
)

type CreateChatRequest struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" binding:"required"`
	IsPrivate bool      `json:"isPrivate"`
}

type ChatResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsPrivate bool      `json:"isPrivate"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageResponse struct {
	ID          uuid.UUID                `json:"id"`
	ChatID      uuid.UUID                `json:"chatId"`
	Role        string                   `json:"role"`
	Content     string                   `json:"content"`
	Timestamp   time.Time                `json:"timestamp"`
	Attachments []models.Attachment      `json:"attachments,omitempty"`
	Results     []aisearch.ArchiveResult `json:"results,omitempty"`
	IsError     bool                     `json:"isError,omitempty"`
}

// SendMessageResponse carries both messages produced by one send action.
type SendMessageResponse struct {
	UserMessage      MessageResponse `json:"userMessage"`
	AssistantMessage MessageResponse `json:"assistantMessage"`
}

func (h *handler) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.MustGet("userID").(uuid.UUID)
	chat := models.Chat{
		ID:        req.ID,
		Name:      req.Name,
		IsPrivate: req.IsPrivate,
		UserID:    userID,
	}

	if err := h.db.Create(&chat).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create chat"})
		return
	}

	// Cache the chat data in Redis
	if h.redisClient != nil { // Check if Redis client is initialized
		ctx := context.Background()
		chatResponse := ChatResponse{
			ID:        chat.ID,
			Name:      chat.Name,
			IsPrivate: chat.IsPrivate,
			CreatedAt: chat.CreatedAt,
		}
		chatJSON, _ := json.Marshal(chatResponse)
		chatKey := fmt.Sprintf("chat:%s", chat.ID)
		if err := h.redisClient.Set(ctx, chatKey, chatJSON, time.Hour*24).Err(); err != nil {
			log.Printf("Failed to cache chat data: %v", err)
		}
	}

	c.JSON(http.StatusCreated, ChatResponse{
		ID:        chat.ID,
		Name:      chat.Name,
		IsPrivate: chat.IsPrivate,
		CreatedAt: chat.CreatedAt,
	})
}

func (h *handler) ListChats(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)
	var chats []models.Chat

	if err := h.db.Where("user_id = ?", userID).Find(&chats).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chats"})
		return
	}

	var response = make([]ChatResponse, 0)
	for _, chat := range chats {
		response = append(response, ChatResponse{
			ID:        chat.ID,
			Name:      chat.Name,
			IsPrivate: chat.IsPrivate,
			CreatedAt: chat.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, response)
}

func (h *handler) GetChatMessages(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat ID"})
		return
	}

	if h.redisClient != nil { // Use cache only if Redis is initialized
		ctx := context.Background()
		cacheKey := fmt.Sprintf("chat:%s:messages", chatID.String())

		// Try to get messages from cache
		cachedMessages, cacheErr := h.getCachedMessages(ctx, cacheKey)
		if cacheErr == nil && len(cachedMessages) > 0 {
			c.JSON(http.StatusOK, cachedMessages)
			return
		}
	}

	// If not in cache or Redis is not initialized, get from database
	messages, err := h.messages.ListByChat(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	response := h.convertMessagesToResponse(messages)

	// Cache the messages from database if Redis is available
	if h.redisClient != nil {
		ctx := context.Background()
		cacheKey := fmt.Sprintf("chat:%s:messages", chatID.String())
		if cacheErr := h.cacheMessagesFromDB(ctx, cacheKey, response); cacheErr != nil {
			log.Printf("Failed to cache messages: %v", cacheErr)
		}
	}

	c.JSON(http.StatusOK, response)
}

// SendMessage appends the curator's message to the chat, runs an archive
// search for it and appends exactly one assistant message carrying the
// results. A failed search still appends exactly one assistant message,
// flagged as an error.
func (h *handler) SendMessage(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat ID"})
		return
	}

	content, attachments, ok := h.readMessageInput(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	// Save the curator's message first; the transcript is append-only
	userMessage, err := h.createAndCacheMessage(ctx, chatID, "user", content, attachments, "", false)
	if err != nil {
		log.Printf("Failed to save user message: %v", err)
		h.cleanupAttachmentFiles(attachments)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		return
	}

	assistantMessage, err := h.answerMessage(ctx, chatID, content)
	if err != nil {
		log.Printf("Failed to save assistant message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save assistant message"})
		return
	}

	c.JSON(http.StatusCreated, SendMessageResponse{
		UserMessage:      h.convertMessageToResponse(*userMessage),
		AssistantMessage: h.convertMessageToResponse(*assistantMessage),
	})
}

// readMessageInput parses a message send request, either JSON or
// multipart with file attachments. Empty content with no attachments is
// rejected.
func (h *handler) readMessageInput(c *gin.Context) (string, models.AttachmentList, bool) {
	var content string
	var attachments models.AttachmentList

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form", "details": err.Error()})
			return "", nil, false
		}
		content = strings.TrimSpace(c.PostForm("content"))

		for _, file := range form.File["files"] {
			storagePath, err := h.files.Save(file)
			if err != nil {
				log.Printf("Failed to store attachment %s: %v", file.Filename, err)
				h.cleanupAttachmentFiles(attachments)
				c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to store attachment %s", file.Filename)})
				return "", nil, false
			}
			attachments = append(attachments, models.Attachment{
				Name:        file.Filename,
				StoragePath: storagePath,
				ContentType: file.Header.Get("Content-Type"),
				Size:        file.Size,
			})
		}
	} else {
		var req struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return "", nil, false
		}
		content = strings.TrimSpace(req.Content)
	}

	// Sending empty input with no attached files is a no-op in the UI;
	// reaching here with one is a client error.
	if content == "" && len(attachments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content or attachments required"})
		return "", nil, false
	}

	return content, attachments, true
}

// answerMessage produces the single assistant reply for a sent message.
func (h *handler) answerMessage(ctx context.Context, chatID uuid.UUID, content string) (*models.Message, error) {
	if content == "" {
		// Attachment-only message, nothing to search for
		return h.createAndCacheMessage(ctx, chatID, "assistant",
			"Files received. Add a search query to look for related archives.", nil, "", false)
	}

	result, err := h.agent.Search(ctx, content, nil)
	if err != nil {
		log.Printf("❌ Search failed for chat %s: %v", chatID, err)
		return h.createAndCacheMessage(ctx, chatID, "assistant",
			"Search failed. Please try again.", nil, "", true)
	}

	summary := result.Message
	if summary == "" {
		summary = fmt.Sprintf("Found %d archives for %q", result.Total, result.Query)
	}

	resultsJSON, err := json.Marshal(result.Archives)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}

	return h.createAndCacheMessage(ctx, chatID, "assistant", summary, nil, string(resultsJSON), false)
}

// cleanupAttachmentFiles removes stored attachment files after a failed
// save, so rejected sends leave nothing behind on disk.
func (h *handler) cleanupAttachmentFiles(attachments models.AttachmentList) {
	for _, a := range attachments {
		if err := h.files.Remove(a.StoragePath); err != nil {
			log.Printf("Failed to remove attachment %s: %v", a.StoragePath, err)
		}
	}
}

func (h *handler) cacheMessage(ctx context.Context, cacheKey string, msg MessageResponse) error {
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %v", err)
	}

	msgPipe := h.redisClient.Pipeline()
	msgPipe.RPush(ctx, cacheKey, msgJSON)
	msgPipe.Expire(ctx, cacheKey, time.Hour*24)

	if _, err := msgPipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache message: %v", err)
	}
	return nil
}

func (h *handler) getCachedMessages(ctx context.Context, cacheKey string) ([]MessageResponse, error) {
	// Try to get messages from Redis
	cachedMsgs, err := h.redisClient.LRange(ctx, cacheKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from cache: %v", err)
	}

	var messages []MessageResponse
	for _, msgStr := range cachedMsgs {
		var msgResponse MessageResponse
		if err := json.Unmarshal([]byte(msgStr), &msgResponse); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %v", err)
		}
		messages = append(messages, msgResponse)
	}

	return messages, nil
}

func (h *handler) createAndCacheMessage(ctx context.Context, chatID uuid.UUID, role, content string, attachments models.AttachmentList, results string, isError bool) (*models.Message, error) {
	message := models.Message{
		ChatID:      chatID,
		Role:        role,
		Content:     content,
		Timestamp:   time.Now(),
		Attachments: attachments,
		Results:     results,
		IsError:     isError,
	}

	// Save to database
	if err := h.messages.Create(ctx, &message); err != nil {
		return nil, fmt.Errorf("failed to save message: %v", err)
	}

	// Cache in Redis
	if h.redisClient != nil {
		cacheKey := fmt.Sprintf("chat:%s:messages", chatID.String())
		if err := h.cacheMessage(ctx, cacheKey, h.convertMessageToResponse(message)); err != nil {
			log.Printf("Failed to cache message: %v", err)
		}
	}

	return &message, nil
}

func (h *handler) cacheMessagesFromDB(ctx context.Context, cacheKey string, messages []MessageResponse) error {
	if h.redisClient == nil {
		return nil // Do not cache if Redis is not initialized
	}
	msgPipe := h.redisClient.Pipeline()
	msgPipe.Del(ctx, cacheKey)

	for _, msg := range messages {
		msgJSON, err := json.Marshal(msg)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			continue
		}
		msgPipe.RPush(ctx, cacheKey, msgJSON)
	}

	msgPipe.Expire(ctx, cacheKey, time.Hour*24)
	if _, err := msgPipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache messages: %v", err)
	}
	return nil
}

func (h *handler) convertMessageToResponse(msg models.Message) MessageResponse {
	response := MessageResponse{
		ID:          msg.ID,
		ChatID:      msg.ChatID,
		Role:        msg.Role,
		Content:     msg.Content,
		Timestamp:   msg.Timestamp,
		Attachments: msg.Attachments,
		IsError:     msg.IsError,
	}

	if msg.Results != "" {
		if err := json.Unmarshal([]byte(msg.Results), &response.Results); err != nil {
			log.Printf("Failed to decode results payload for message %s: %v", msg.ID, err)
		}
	}

	return response
}

func (h *handler) convertMessagesToResponse(messages []models.Message) []MessageResponse {
	response := make([]MessageResponse, len(messages))
	for i, msg := range messages {
		response[i] = h.convertMessageToResponse(msg)
	}
	return response
}
