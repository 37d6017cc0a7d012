package relay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one side of a relayed exchange.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"index;not null" json:"session_id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Role      string    `gorm:"not null" json:"role"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Transcript struct {
	db *gorm.DB
}

// OpenTranscript opens (and migrates) the sqlite transcript at path.
func OpenTranscript(path string) (*Transcript, error) {
	if path == "" {
		path = "chat.db"
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("relay: open transcript: %w", err)
	}
	if err := db.AutoMigrate(&ChatMessage{}); err != nil {
		return nil, fmt.Errorf("relay: migrate transcript: %w", err)
	}
	return &Transcript{db: db}, nil
}

func ensureDir(path string) error {
	if strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory") {
		return nil
	}
	clean := strings.Split(strings.TrimPrefix(path, "file:"), "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("relay: create transcript dir %q: %w", dir, err)
	}
	return nil
}

func (t *Transcript) Append(ctx context.Context, msgs ...ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := t.db.WithContext(ctx).Create(&msgs).Error; err != nil {
		return fmt.Errorf("relay: append transcript: %w", err)
	}
	return nil
}

// History returns the last limit messages of a session, oldest first.
func (t *Transcript) History(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []ChatMessage
	err := t.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("relay: read transcript: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (t *Transcript) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
