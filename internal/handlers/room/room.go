// Package room serves the REST endpoints for a user's room and its history.
package room

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/convo-chat/convo/internal/apperr"
	"github.com/convo-chat/convo/internal/auth"
	"github.com/convo-chat/convo/internal/models"
	"github.com/convo-chat/convo/internal/service"
)

type RoomCreator interface {
	Create(ctx context.Context, userID, username string) (*models.Room, error)
}

type RoomFinder interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type MessageLister interface {
	GetMessagesByRoomID(ctx context.Context, roomID string, p service.Pagination) ([]models.MessageSummary, error)
}

type MessageCreator interface {
	Create(ctx context.Context, in service.CreateMessage) (*models.Message, error)
}

// Publisher delivers a message to every live connection in a room.
type Publisher interface {
	Publish(roomID string, sender *auth.Payload, text string) int
}

func roomIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperr.Invalid("invalid room id")
	}
	return id, nil
}
