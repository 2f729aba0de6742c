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

type MessageStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewMessageStore(db *sql.DB, dialect Dialect) *MessageStore {
	return &MessageStore{db: db, dialect: dialect, now: now}
}

// Create records a message. The rooms foreign key rejects unknown rooms.
func (s *MessageStore) Create(ctx context.Context, roomID, userID, username, text string) (*models.Message, error) {
	if _, err := uuid.Parse(roomID); err != nil {
		return nil, apperr.Missing(msgRoomNotFound)
	}
	m := &models.Message{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    userID,
		Username:  username,
		Text:      text,
		CreatedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		s.dialect.Rebind("INSERT INTO messages (id, room_id, user_id, username, text, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		m.ID, m.RoomID, m.UserID, m.Username, m.Text, m.CreatedAt)
	if err != nil {
		if s.dialect.Classify(err) == ForeignKeyViolation {
			return nil, apperr.Missing(msgRoomNotFound)
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// ListByRoom returns one page of a room's history, oldest first. An empty
// page of an existing room is an empty slice; an unknown room is NotFound.
func (s *MessageStore) ListByRoom(ctx context.Context, roomID string, limit, offset int) ([]models.MessageSummary, error) {
	if _, err := uuid.Parse(roomID); err != nil {
		return nil, apperr.Missing(msgRoomNotFound)
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT messages.username, messages.text FROM messages
		INNER JOIN rooms ON rooms.id = messages.room_id
		WHERE rooms.id = ?
		ORDER BY messages.created_at, messages.id
		LIMIT ? OFFSET ?`), roomID, limit, offset)
	if err != nil {
		if s.dialect.Classify(err) == ForeignKeyViolation {
			return nil, apperr.Missing(msgRoomNotFound)
		}
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.MessageSummary, 0, limit)
	for rows.Next() {
		m, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	rows.Close()
	if len(out) > 0 {
		return out, nil
	}

	var one int
	err = s.db.QueryRowContext(ctx, s.dialect.Rebind("SELECT 1 FROM rooms WHERE id = ?"), roomID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Missing(msgRoomNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("check room: %w", err)
	}
	return out, nil
}

func scanSummary(rows *sql.Rows) (models.MessageSummary, error) {
	var m models.MessageSummary
	err := rows.Scan(&m.Username, &m.Text)
	return m, err
}
