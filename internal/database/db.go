package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations
var migrations embed.FS

// Drivers maps the configured DB_DRIVER to the registered database/sql driver.
var Drivers = map[string]string{
	"mysql":    "mysql",
	"postgres": "pgx",
	"sqlite":   "sqlite3",
}

// Open connects to the database and verifies it with a ping.
func Open(driver, dsn string) (*sql.DB, error) {
	sqlDriver, ok := Drivers[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	var err error
	switch driver {
	case "mysql":
		if dsn, err = normalizeMySQLDSN(dsn); err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
	case "sqlite":
		if dsn, err = normalizeSQLiteDSN(dsn); err != nil {
			return nil, fmt.Errorf("parse sqlite dsn: %w", err)
		}
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// normalizeMySQLDSN makes DATETIME columns scan into time.Time in UTC.
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// normalizeSQLiteDSN turns on foreign key enforcement, which SQLite leaves
// off per connection unless asked.
func normalizeSQLiteDSN(dsn string) (string, error) {
	base, rawQuery, _ := strings.Cut(dsn, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", err
	}
	q.Del("_fk")
	q.Set("_foreign_keys", "on")
	return base + "?" + q.Encode(), nil
}

// RunMigrations applies the embedded schema files for driver in name order.
// Every file is idempotent so this runs on each start.
func RunMigrations(ctx context.Context, db *sql.DB, driver string, log logrus.FieldLogger) error {
	dir := path.Join("migrations", driver)
	files, err := fs.Glob(migrations, path.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations for driver %q", driver)
	}
	sort.Strings(files)

	for _, file := range files {
		b, err := migrations.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		stepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err = db.ExecContext(stepCtx, string(b))
		cancel()
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
		log.WithField("file", path.Base(file)).Info("migration applied")
	}
	return nil
}
