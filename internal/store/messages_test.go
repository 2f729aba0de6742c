package store

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convo-chat/convo/internal/apperr"
	"github.com/convo-chat/convo/internal/database"
	"github.com/convo-chat/convo/internal/models"
)

func TestMessageStoreCreateUnknownRoom(t *testing.T) {
	db := newSQLiteDB(t)
	s := NewMessageStore(db, SQLite{})

	_, err := s.Create(context.Background(), uuid.NewString(), "user-1", "alice", "hi")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, "room not found", err.Error())

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n))
	assert.Zero(t, n)
}

func TestMessageStoreRejectsOrphanWithPlainSQLiteDSN(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()
	log, _ := test.NewNullLogger()
	require.NoError(t, database.RunMigrations(ctx, db, "sqlite", log))

	_, err = NewMessageStore(db, SQLite{}).Create(ctx, uuid.NewString(), "user-1", "alice", "orphan")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n))
	assert.Zero(t, n)
}

func TestMessageStoreListPagination(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	rooms := NewRoomStore(db, SQLite{})
	s := NewMessageStore(db, SQLite{})
	s.now = tickingClock()

	room, err := rooms.Create(ctx, "user-1", "alice")
	require.NoError(t, err)
	const total = 7
	for i := 0; i < total; i++ {
		_, err := s.Create(ctx, room.ID, "user-1", "alice", fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	const perPage = 3
	tests := []struct {
		page int
		want []string
	}{
		{1, []string{"msg-0", "msg-1", "msg-2"}},
		{2, []string{"msg-3", "msg-4", "msg-5"}},
		{3, []string{"msg-6"}},
		{4, []string{}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			got, err := s.ListByRoom(ctx, room.ID, perPage, (tt.page-1)*perPage)
			require.NoError(t, err)
			require.NotNil(t, got)
			texts := make([]string, 0, len(got))
			for _, m := range got {
				assert.Equal(t, "alice", m.Username)
				texts = append(texts, m.Text)
			}
			assert.Equal(t, tt.want, texts)
		})
	}
}

func TestMessageStoreListBeyondLastOffset(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	room, err := NewRoomStore(db, SQLite{}).Create(ctx, "user-1", "alice")
	require.NoError(t, err)
	s := NewMessageStore(db, SQLite{})
	for _, text := range []string{"a", "b", "c"} {
		_, err := s.Create(ctx, room.ID, "user-1", "alice", text)
		require.NoError(t, err)
	}

	got, err := s.ListByRoom(ctx, room.ID, 2, math.MaxInt)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestMessageStoreListMissingRoom(t *testing.T) {
	s := NewMessageStore(newSQLiteDB(t), SQLite{})

	_, err := s.ListByRoom(context.Background(), uuid.NewString(), 10, 0)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = s.ListByRoom(context.Background(), "42", 10, 0)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestMessageStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	room, err := NewRoomStore(db, SQLite{}).Create(ctx, "user-1", "alice")
	require.NoError(t, err)
	s := NewMessageStore(db, SQLite{})

	m, err := s.Create(ctx, room.ID, "user-2", "bob", "hello there")
	require.NoError(t, err)
	assert.Equal(t, room.ID, m.RoomID)
	assert.Equal(t, "user-2", m.UserID)

	got, err := s.ListByRoom(ctx, room.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.MessageSummary{{Username: "bob", Text: "hello there"}}, got)
}

func TestMessageStoreForeignKeyCodes(t *testing.T) {
	roomID := uuid.NewString()
	tests := []struct {
		name    string
		dialect Dialect
		err     error
	}{
		{"mysql", MySQL{}, &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}},
		{"postgres", Postgres{}, &pgconn.PgError{Code: "23503"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec("INSERT INTO messages").
				WithArgs(sqlmock.AnyArg(), roomID, "user-1", "alice", "hi", sqlmock.AnyArg()).
				WillReturnError(tt.err)
			mock.ExpectQuery("SELECT messages.username, messages.text FROM messages").
				WillReturnError(tt.err)

			s := NewMessageStore(db, tt.dialect)
			_, err = s.Create(context.Background(), roomID, "user-1", "alice", "hi")
			assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
			_, err = s.ListByRoom(context.Background(), roomID, 10, 0)
			assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMessageStoreListPostgresQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	roomID := uuid.NewString()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE rooms.id = $1")).
		WithArgs(roomID, 5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"username", "text"}).AddRow("alice", "hi"))

	got, err := NewMessageStore(db, Postgres{}).ListByRoom(context.Background(), roomID, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.MessageSummary{{Username: "alice", Text: "hi"}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
