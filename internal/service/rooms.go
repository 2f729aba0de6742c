// Package service holds the room and message use cases used by the HTTP
// handlers and the websocket gateway.
package service

import (
	"context"
	"strings"

	"github.com/convo-chat/convo/internal/apperr"
	"github.com/convo-chat/convo/internal/models"
)

type RoomRepository interface {
	Create(ctx context.Context, userID, username string) (*models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	GetByID(ctx context.Context, id string) (*models.Room, error)
}

type RoomService struct {
	rooms RoomRepository
}

func NewRoomService(rooms RoomRepository) *RoomService {
	return &RoomService{rooms: rooms}
}

// Create opens the personal room of the given user.
func (s *RoomService) Create(ctx context.Context, userID, username string) (*models.Room, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(username) == "" {
		return nil, apperr.Invalid("userId and username are required")
	}
	return s.rooms.Create(ctx, userID, username)
}

// FindByID fails with NotFound when the room does not exist.
func (s *RoomService) FindByID(ctx context.Context, id string) (*models.Room, error) {
	return s.rooms.FindByID(ctx, id)
}

// GetByID returns nil without error when the room does not exist.
func (s *RoomService) GetByID(ctx context.Context, id string) (*models.Room, error) {
	return s.rooms.GetByID(ctx, id)
}
