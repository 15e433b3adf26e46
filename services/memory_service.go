package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/models"
)

// CacheStore is the expiring key-value store backing short-term memory.
// Get returns nil with no error on a miss.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryEntry is one item of a customer's conversation memory. It is
// the cache-side shape of a Message, holding only what the prompt
// builder needs.
type MemoryEntry struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	MessageType  string    `json:"message_type"`
	Timestamp    time.Time `json:"timestamp"`
	ModelUsed    string    `json:"model_used,omitempty"`
	ResponseTime float64   `json:"response_time,omitempty"`
}

// MemoryStats reports per-customer memory usage for diagnostics.
type MemoryStats struct {
	ShortTermCount int   `json:"short_term_count"`
	LongTermCount  int64 `json:"long_term_count"`
	TotalMemory    int64 `json:"total_memory"`
}

const (
	defaultShortTermLimit    = 10
	defaultNotificationLimit = 10
	defaultConversationLimit = 30
)

// MemoryService merges the short-term cache window, durable history
// and pending notifications into one context for the chatbot. Tier
// reads are best-effort: a failing tier degrades to an empty slice,
// never to an error.
type MemoryService struct {
	db           *gorm.DB
	cache        CacheStore
	shortTermTTL time.Duration
	maxHistory   int
}

func NewMemoryService(db *gorm.DB, cache CacheStore, shortTermTTL time.Duration, maxHistory int) *MemoryService {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	if shortTermTTL <= 0 {
		shortTermTTL = 30 * time.Minute
	}
	return &MemoryService{
		db:           db,
		cache:        cache,
		shortTermTTL: shortTermTTL,
		maxHistory:   maxHistory,
	}
}

func shortTermKey(customerID uint) string {
	return fmt.Sprintf("memory:short:%d", customerID)
}

// GetShortTerm reads the cached window for a customer.
func (s *MemoryService) GetShortTerm(ctx context.Context, customerID uint) []MemoryEntry {
	data, err := s.cache.Get(ctx, shortTermKey(customerID))
	if err != nil || data == nil {
		return nil
	}
	var entries []MemoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

// SetShortTerm rewrites the cached window, truncated to the configured
// maximum and with a refreshed TTL.
func (s *MemoryService) SetShortTerm(ctx context.Context, customerID uint, entries []MemoryEntry) {
	if len(entries) > s.maxHistory {
		entries = entries[len(entries)-s.maxHistory:]
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	_ = s.cache.SetWithTTL(ctx, shortTermKey(customerID), data, s.shortTermTTL)
}

// AddToShortTerm appends one entry to the window. This is a plain
// read-modify-write; concurrent appends are last-write-wins.
func (s *MemoryService) AddToShortTerm(ctx context.Context, customerID uint, entry MemoryEntry) {
	current := s.GetShortTerm(ctx, customerID)
	current = append(current, entry)
	s.SetShortTerm(ctx, customerID, current)
}

// GetLongTerm returns up to limit most recent persisted messages for
// the customer, oldest first.
func (s *MemoryService) GetLongTerm(ctx context.Context, customerID uint, limit int) []MemoryEntry {
	if limit <= 0 {
		limit = defaultConversationLimit
	}
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil
	}
	return toEntriesOldestFirst(messages)
}

// GetRecentNotifications returns up to limit most recent system
// messages for the customer, oldest first.
func (s *MemoryService) GetRecentNotifications(ctx context.Context, customerID uint, limit int) []MemoryEntry {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND message_type = ?", customerID, models.MessageTypeSystem).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil
	}
	return toEntriesOldestFirst(messages)
}

func toEntriesOldestFirst(messages []models.Message) []MemoryEntry {
	entries := make([]MemoryEntry, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		entries = append(entries, MemoryEntry{
			Role:         msg.Role,
			Content:      msg.Content,
			MessageType:  msg.MessageType,
			Timestamp:    msg.CreatedAt,
			ModelUsed:    msg.ModelUsed,
			ResponseTime: msg.ResponseTime,
		})
	}
	return entries
}

// GetCombined merges short-term, notification and long-term memory
// into one deduplicated sequence. The order is recency-priority, not
// chronological: short-term entries come first (they may not have been
// flushed to durable storage yet), then notifications, then history,
// and duplicates across tiers collapse to the earlier-listed copy.
// Zero limits select the defaults (10/10/30).
func (s *MemoryService) GetCombined(ctx context.Context, customerID uint, shortTermLimit, notificationLimit, conversationLimit int) []MemoryEntry {
	if shortTermLimit <= 0 {
		shortTermLimit = defaultShortTermLimit
	}

	shortTerm := s.GetShortTerm(ctx, customerID)
	if len(shortTerm) > shortTermLimit {
		shortTerm = shortTerm[len(shortTerm)-shortTermLimit:]
	}
	notifications := s.GetRecentNotifications(ctx, customerID, notificationLimit)
	longTerm := s.GetLongTerm(ctx, customerID, conversationLimit)

	combined := make([]MemoryEntry, 0, len(shortTerm)+len(notifications)+len(longTerm))
	combined = append(combined, shortTerm...)
	combined = append(combined, notifications...)
	combined = append(combined, longTerm...)

	seen := make(map[string]bool, len(combined))
	unique := make([]MemoryEntry, 0, len(combined))
	for _, entry := range combined {
		key := fmt.Sprintf("%s_%d_%s", entry.Content, entry.Timestamp.UnixNano(), entry.MessageType)
		if !seen[key] {
			seen[key] = true
			unique = append(unique, entry)
		}
	}
	return unique
}

// AddToLongTerm persists one entry as a Message in the given chat.
func (s *MemoryService) AddToLongTerm(ctx context.Context, customerID, chatID uint, entry MemoryEntry, metadata map[string]any) error {
	msg := models.Message{
		ChatID:       chatID,
		CustomerID:   customerID,
		Content:      entry.Content,
		Role:         entry.Role,
		MessageType:  entry.MessageType,
		ModelUsed:    entry.ModelUsed,
		ResponseTime: entry.ResponseTime,
		Metadata:     metadata,
	}
	return s.db.WithContext(ctx).Create(&msg).Error
}

// ClearShortTerm drops the cached window for a customer.
func (s *MemoryService) ClearShortTerm(ctx context.Context, customerID uint) {
	_ = s.cache.Delete(ctx, shortTermKey(customerID))
}

// Stats reports the short-term window size and durable message count.
func (s *MemoryService) Stats(ctx context.Context, customerID uint) MemoryStats {
	shortTerm := s.GetShortTerm(ctx, customerID)

	var longTermCount int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("customer_id = ?", customerID).
		Count(&longTermCount).Error; err != nil {
		longTermCount = 0
	}

	return MemoryStats{
		ShortTermCount: len(shortTerm),
		LongTermCount:  longTermCount,
		TotalMemory:    int64(len(shortTerm)) + longTermCount,
	}
}
