package service

import (
	"context"
	"math"
	"strings"

	"github.com/convo-chat/convo/internal/apperr"
	"github.com/convo-chat/convo/internal/models"
)

const (
	DefaultItemsPerPage = 10
	MaxItemsPerPage     = 100
)

type MessageRepository interface {
	Create(ctx context.Context, roomID, userID, username, text string) (*models.Message, error)
	ListByRoom(ctx context.Context, roomID string, limit, offset int) ([]models.MessageSummary, error)
}

// CreateMessage is a message to record, tagged with the verified sender.
type CreateMessage struct {
	RoomID   string
	UserID   string
	Username string
	Text     string
}

// Pagination selects a 1-based page of ItemsPerPage messages.
type Pagination struct {
	Page         int
	ItemsPerPage int
}

func (p Pagination) Validate() error {
	if p.Page < 1 {
		return apperr.Invalid("page must be a positive integer")
	}
	if p.ItemsPerPage < 1 || p.ItemsPerPage > MaxItemsPerPage {
		return apperr.Invalid("itemsPerPage must be between 1 and 100")
	}
	return nil
}

// Offset is the number of messages before the page. A page past the
// largest representable offset is clamped to it and therefore empty.
func (p Pagination) Offset() int {
	if p.Page < 1 || p.ItemsPerPage < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.ItemsPerPage {
		return math.MaxInt
	}
	return (p.Page - 1) * p.ItemsPerPage
}

type MessageService struct {
	messages MessageRepository
}

func NewMessageService(messages MessageRepository) *MessageService {
	return &MessageService{messages: messages}
}

func (s *MessageService) Create(ctx context.Context, in CreateMessage) (*models.Message, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, apperr.Invalid("message text is required")
	}
	return s.messages.Create(ctx, in.RoomID, in.UserID, in.Username, in.Text)
}

// GetMessagesByRoomID lists one page of a room's history, oldest first.
func (s *MessageService) GetMessagesByRoomID(ctx context.Context, roomID string, p Pagination) ([]models.MessageSummary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.messages.ListByRoom(ctx, roomID, p.ItemsPerPage, p.Offset())
}
