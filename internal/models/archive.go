package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StringList is a []string stored as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for string list: %T", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// Archive represents a catalogued heritage object: one or more uploaded
// media files plus curator-provided metadata and the AI-generated summary.
type Archive struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Title        string `gorm:"not null"`
	Description  string
	Summary      string     `gorm:"type:text"`
	MediaTypes   StringList `gorm:"type:text"`
	Tags         StringList `gorm:"type:text"`
	Dates        StringList `gorm:"type:text"`
	StoragePaths StringList `gorm:"type:text"`
	FileURIs     StringList `gorm:"type:text"`
}

// ValidMediaTypes lists the media types an archive may carry.
var ValidMediaTypes = []string{"image", "video", "audio", "document"}

// IsValidMediaType reports whether t is a known media type.
func IsValidMediaType(t string) bool {
	for _, v := range ValidMediaTypes {
		if t == v {
			return true
		}
	}
	return false
}
