package queries

import (
	"strings"
	"testing"
)

func TestLoadAllDialects(t *testing.T) {
	loaders := map[string]func() (*Queries, error){
		"postgres": LoadPostgres,
		"mysql":    LoadMySQL,
		"sqlite":   LoadSQLite,
	}

	for name, load := range loaders {
		t.Run(name, func(t *testing.T) {
			q, err := load()
			if err != nil {
				t.Fatalf("load error = %v", err)
			}
			if !strings.Contains(q.Schema, "userreg_users") {
				t.Error("schema should create userreg_users")
			}
			for field, sql := range map[string]string{
				"InsertUser":        q.InsertUser,
				"SelectUserByEmail": q.SelectUserByEmail,
				"SelectUsers":       q.SelectUsers,
				"CountUsers":        q.CountUsers,
			} {
				if sql == "" {
					t.Errorf("%s is empty", field)
				}
			}
			if !strings.Contains(q.SelectUsers, "ORDER BY id ASC") {
				t.Errorf("SelectUsers should order by id, got %q", q.SelectUsers)
			}
		})
	}
}

func TestParseNamedQueries(t *testing.T) {
	content := `
-- name: First
SELECT 1

-- name: Second
SELECT 2
FROM t

-- name: Empty
`
	got := parseNamedQueries(content)

	if got["First"] != "SELECT 1" {
		t.Errorf("First = %q, want %q", got["First"], "SELECT 1")
	}
	if got["Second"] != "SELECT 2\nFROM t" {
		t.Errorf("Second = %q", got["Second"])
	}
	if _, ok := got["Empty"]; ok {
		t.Error("queries without a body should be skipped")
	}
}
