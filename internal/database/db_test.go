package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	assert.EqualError(t, err, `unsupported database driver "oracle"`)
}

func TestNormalizeMySQLDSN(t *testing.T) {
	dsn, err := normalizeMySQLDSN("convo:secret@tcp(localhost:3306)/convo")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
}

func TestNormalizeSQLiteDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"file:chat.db", "file:chat.db?_foreign_keys=on"},
		{"file:x?mode=memory&cache=shared", "file:x?_foreign_keys=on&cache=shared&mode=memory"},
		{"/var/lib/convo.db?_foreign_keys=off", "/var/lib/convo.db?_foreign_keys=on"},
		{"convo.db?_fk=0", "convo.db?_foreign_keys=on"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			got, err := normalizeSQLiteDSN(tt.dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenSQLiteEnforcesForeignKeys(t *testing.T) {
	db, err := Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()

	var on int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)
}

func TestRunMigrationsSQLiteIsIdempotent(t *testing.T) {
	db, err := Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()

	log, hook := test.NewNullLogger()
	require.NoError(t, RunMigrations(context.Background(), db, "sqlite", log))
	require.NoError(t, RunMigrations(context.Background(), db, "sqlite", log))
	assert.Len(t, hook.AllEntries(), 6)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('rooms', 'messages')").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestRunMigrationsUnknownDriver(t *testing.T) {
	db, err := Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()

	err = RunMigrations(context.Background(), db, "mssql", logrus.New())
	assert.Error(t, err)
}
