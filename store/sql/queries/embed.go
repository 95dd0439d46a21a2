// Package queries embeds SQL query files for the SQL store.
package queries

import (
	"embed"
	"fmt"
	"strings"
)

// PostgresFS embeds PostgreSQL query files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// MySQLFS embeds MySQL query files.
//
//go:embed mysql/*.sql
var MySQLFS embed.FS

// SQLiteFS embeds SQLite query files.
//
//go:embed sqlite/*.sql
var SQLiteFS embed.FS

// Queries holds parsed SQL queries by name.
type Queries struct {
	Schema            string
	InsertUser        string
	SelectUserByEmail string
	SelectUsers       string
	CountUsers        string
}

// LoadPostgres loads PostgreSQL queries from embedded files.
func LoadPostgres() (*Queries, error) {
	return loadQueries(PostgresFS, "postgres")
}

// LoadMySQL loads MySQL queries from embedded files.
func LoadMySQL() (*Queries, error) {
	return loadQueries(MySQLFS, "mysql")
}

// LoadSQLite loads SQLite queries from embedded files.
func LoadSQLite() (*Queries, error) {
	return loadQueries(SQLiteFS, "sqlite")
}

func loadQueries(fs embed.FS, dir string) (*Queries, error) {
	q := &Queries{}

	schema, err := fs.ReadFile(dir + "/schema.sql")
	if err != nil {
		return nil, err
	}
	q.Schema = string(schema)

	users, err := fs.ReadFile(dir + "/users.sql")
	if err != nil {
		return nil, err
	}
	parsed := parseNamedQueries(string(users))

	fields := []struct {
		name string
		dst  *string
	}{
		{"InsertUser", &q.InsertUser},
		{"SelectUserByEmail", &q.SelectUserByEmail},
		{"SelectUsers", &q.SelectUsers},
		{"CountUsers", &q.CountUsers},
	}
	for _, f := range fields {
		sql, ok := parsed[f.name]
		if !ok {
			return nil, fmt.Errorf("%s/users.sql: missing query %q", dir, f.name)
		}
		*f.dst = sql
	}

	return q, nil
}

// parseNamedQueries parses SQL content with -- name: comments.
func parseNamedQueries(content string) map[string]string {
	result := make(map[string]string)

	for _, part := range strings.Split(content, "-- name:") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// First line is the query name, rest is the SQL
		lines := strings.SplitN(part, "\n", 2)
		if len(lines) < 2 {
			continue
		}

		name := strings.TrimSpace(lines[0])
		query := strings.TrimSpace(lines[1])
		if name != "" && query != "" {
			result[name] = query
		}
	}

	return result
}
