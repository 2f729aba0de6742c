package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Violation is the storage constraint an error tripped, if any.
type Violation int

const (
	NoViolation Violation = iota
	UniqueViolation
	ForeignKeyViolation
)

// Dialect hides the differences between the supported SQL backends:
// placeholder syntax and the driver's constraint error codes.
type Dialect interface {
	Name() string
	Rebind(query string) string
	Classify(err error) Violation
}

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL{}, nil
	case "postgres":
		return Postgres{}, nil
	case "sqlite":
		return SQLite{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

type MySQL struct{}

func (MySQL) Name() string               { return "mysql" }
func (MySQL) Rebind(query string) string { return query }

func (MySQL) Classify(err error) Violation {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return NoViolation
	}
	switch myErr.Number {
	case 1062:
		return UniqueViolation
	case 1216, 1452:
		return ForeignKeyViolation
	}
	return NoViolation
}

type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

// Rebind rewrites ? placeholders to $1, $2, ...
func (Postgres) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (Postgres) Classify(err error) Violation {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return NoViolation
	}
	switch pgErr.Code {
	case "23505":
		return UniqueViolation
	case "23503":
		return ForeignKeyViolation
	}
	return NoViolation
}

type SQLite struct{}

func (SQLite) Name() string               { return "sqlite" }
func (SQLite) Rebind(query string) string { return query }

func (SQLite) Classify(err error) Violation {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return NoViolation
	}
	switch liteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return UniqueViolation
	case sqlite3.ErrConstraintForeignKey:
		return ForeignKeyViolation
	}
	return NoViolation
}
