package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"studyroom/internal/model"
	"studyroom/internal/repository"
)

// ChatService sanitizes and stores chat messages
type ChatService struct {
	chats        repository.ChatRepo
	policy       *bluemonday.Policy
	historyLimit int
}

// NewChatService creates a new chat service
func NewChatService(chats repository.ChatRepo, historyLimit int) *ChatService {
	return &ChatService{
		chats:        chats,
		policy:       bluemonday.StrictPolicy(),
		historyLimit: historyLimit,
	}
}

// Sanitize strips all markup. Script and style bodies are dropped with
// their tags, so "<script>x</script>" sanitizes to the empty string.
func (s *ChatService) Sanitize(raw string) (string, error) {
	clean := strings.TrimSpace(s.policy.Sanitize(raw))
	if clean == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(clean) > model.MaxMessageLength {
		return "", fmt.Errorf("%w (max %d chars)", ErrMessageTooLong, model.MaxMessageLength)
	}
	return clean, nil
}

// Save persists an already sanitized message
func (s *ChatService) Save(ctx context.Context, msg *model.ChatMessage) error {
	return s.chats.Create(ctx, msg)
}

// Post sanitizes and persists a message in one step
func (s *ChatService) Post(ctx context.Context, roomID, senderID, username, raw string) (*model.ChatMessage, error) {
	clean, err := s.Sanitize(raw)
	if err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{
		RoomID:    roomID,
		SenderID:  senderID,
		Username:  username,
		Message:   clean,
		CreatedAt: time.Now(),
	}
	if err := s.chats.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return msg, nil
}

// History returns the most recent messages for a room, oldest first
func (s *ChatService) History(ctx context.Context, roomID string) ([]*model.ChatMessage, error) {
	return s.HistoryN(ctx, roomID, s.historyLimit)
}

// HistoryN is History with an explicit limit, capped at the configured one
func (s *ChatService) HistoryN(ctx context.Context, roomID string, limit int) ([]*model.ChatMessage, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	messages, err := s.chats.Recent(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	if messages == nil {
		messages = []*model.ChatMessage{}
	}
	return messages, nil
}
