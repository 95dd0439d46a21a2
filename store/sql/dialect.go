// Package sql provides SQL database storage for registered users.
package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/aloks98/userreg/store/sql/queries"
)

// Dialect represents a SQL database dialect.
type Dialect string

const (
	// PostgreSQL dialect, served by the pgx stdlib driver.
	PostgreSQL Dialect = "postgres"
	// MySQL dialect, served by go-sql-driver/mysql.
	MySQL Dialect = "mysql"
	// SQLite dialect, served by the pure-Go modernc.org/sqlite driver.
	SQLite Dialect = "sqlite"
)

// Default table prefix used in SQL files.
const defaultTablePrefix = "userreg_"

// Error codes reported by each driver for a unique constraint violation.
const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueConstrnt = sqlite3.SQLITE_CONSTRAINT_UNIQUE
)

// dialectQueries contains SQL queries for each dialect.
type dialectQueries struct {
	schema string

	insertUser        string
	selectUserByEmail string
	selectUsers       string
	countUsers        string

	// returning is true when insertUser yields the new ID as a row
	// instead of through LastInsertId.
	returning bool
}

// getDialectQueries returns the queries for a specific dialect with the given table prefix.
func getDialectQueries(d Dialect, tablePrefix string) *dialectQueries {
	var (
		q   *queries.Queries
		err error
	)
	switch d {
	case MySQL:
		q, err = queries.LoadMySQL()
	case SQLite:
		q, err = queries.LoadSQLite()
	default:
		q, err = queries.LoadPostgres()
	}
	if err != nil {
		panic("failed to load " + string(d) + " queries: " + err.Error())
	}

	dq := &dialectQueries{
		schema:            q.Schema,
		insertUser:        q.InsertUser,
		selectUserByEmail: q.SelectUserByEmail,
		selectUsers:       q.SelectUsers,
		countUsers:        q.CountUsers,
		returning:         d != MySQL && d != SQLite,
	}

	if tablePrefix != defaultTablePrefix {
		dq = applyTablePrefix(dq, tablePrefix)
	}
	return dq
}

// applyTablePrefix replaces the default table prefix with a custom one in all queries.
func applyTablePrefix(dq *dialectQueries, prefix string) *dialectQueries {
	replace := func(s string) string {
		return strings.ReplaceAll(s, defaultTablePrefix, prefix)
	}

	return &dialectQueries{
		schema:            replace(dq.schema),
		insertUser:        replace(dq.insertUser),
		selectUserByEmail: replace(dq.selectUserByEmail),
		selectUsers:       replace(dq.selectUsers),
		countUsers:        replace(dq.countUsers),
		returning:         dq.returning,
	}
}

// getDriverName returns the database/sql driver name for the dialect.
func getDriverName(d Dialect) string {
	switch d {
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	default:
		return "pgx"
	}
}

// isUniqueViolation reports whether err is a unique constraint failure from any supported driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqliteUniqueConstrnt {
			return true
		}
		// Primary result code when extended codes are disabled.
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}

	return false
}
