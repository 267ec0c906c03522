package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Attachment is a file the curator attached to a message, after it has
// been written to the file store.
type Attachment struct {
	Name        string `json:"name"`
	StoragePath string `json:"storagePath"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// AttachmentList is an []Attachment stored as a JSON text column.
type AttachmentList []Attachment

// Value implements driver.Valuer.
func (l AttachmentList) Value() (driver.Value, error) {
	if l == nil {
		l = AttachmentList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal attachments: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*l = AttachmentList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for attachments: %T", value)
	}
	if len(data) == 0 {
		*l = AttachmentList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// Message represents a chat message. Messages are append-only: once
// created they are never updated. Assistant messages carry the archive
// results of the search they answered, serialized as a JSON payload.
type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ChatID      uuid.UUID `gorm:"type:uuid"`
	Role        string    `gorm:"type:varchar(10);check:role IN ('user', 'assistant')"`
	Content     string
	Timestamp   time.Time
	Attachments AttachmentList `gorm:"type:text"`
	Results     string         `gorm:"type:text"` // JSON array of archive results
	IsError     bool
}
