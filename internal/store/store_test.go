package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/convo-chat/convo/internal/database"
)

// newSQLiteDB returns a migrated in-memory database private to the test.
func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, _ := test.NewNullLogger()
	require.NoError(t, database.RunMigrations(context.Background(), db, "sqlite", log))
	return db
}

// tickingClock returns a clock that advances one millisecond per call.
func tickingClock() func() time.Time {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Millisecond)
	}
}
