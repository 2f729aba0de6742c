// Package store persists rooms and messages and translates storage
// constraint violations into domain errors.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/convo-chat/convo/internal/apperr"
	"github.com/convo-chat/convo/internal/models"
)

const (
	msgRoomExists   = "room already exists for this user"
	msgRoomNotFound = "room not found"
)

type RoomStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewRoomStore(db *sql.DB, dialect Dialect) *RoomStore {
	return &RoomStore{db: db, dialect: dialect, now: now}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Create inserts a room owned by userID. A user owns at most one room, so a
// second attempt fails with a conflict and leaves the first untouched.
func (s *RoomStore) Create(ctx context.Context, userID, username string) (*models.Room, error) {
	room := &models.Room{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		CreatedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		s.dialect.Rebind("INSERT INTO rooms (id, user_id, username, created_at) VALUES (?, ?, ?, ?)"),
		room.ID, room.UserID, room.Username, room.CreatedAt)
	if err != nil {
		if s.dialect.Classify(err) == UniqueViolation {
			return nil, apperr.Conflicting(msgRoomExists)
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return room, nil
}

// FindByID returns the room or a NotFound error.
func (s *RoomStore) FindByID(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperr.Missing(msgRoomNotFound)
	}
	return room, nil
}

// GetByID returns the room, or nil and no error when it does not exist.
func (s *RoomStore) GetByID(ctx context.Context, id string) (*models.Room, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		s.dialect.Rebind("SELECT id, user_id, username, created_at FROM rooms WHERE id = ?"), id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	return room, nil
}

func scanRoom(row *sql.Row) (*models.Room, error) {
	var r models.Room
	if err := row.Scan(&r.ID, &r.UserID, &r.Username, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
