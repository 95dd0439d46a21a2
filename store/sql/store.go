package sql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	// Drivers for every supported dialect.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/aloks98/userreg/store"
)

// Store implements store.Store using a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	queries *dialectQueries
}

// Config holds SQL store configuration.
type Config struct {
	// Dialect specifies the database type (postgres, mysql, sqlite).
	Dialect Dialect

	// DB is an existing database connection.
	// If provided, DSN is ignored.
	DB *sql.DB

	// DSN is the data source name for connecting to the database.
	// MySQL DSNs must include parseTime=true.
	DSN string

	// TablePrefix is the prefix for all table names.
	// Defaults to "userreg_" if empty.
	TablePrefix string

	// MaxOpenConns sets the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns sets the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime sets the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration
}

// New creates a new SQL store. The connection is not verified until Ping.
func New(cfg *Config) (*Store, error) {
	var db *sql.DB
	var err error

	if cfg.DB != nil {
		db = cfg.DB
	} else {
		db, err = sql.Open(getDriverName(cfg.Dialect), cfg.DSN)
		if err != nil {
			return nil, err
		}

		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	// SQLite serialises writers; a single connection also keeps
	// ":memory:" databases from splitting per connection.
	if cfg.Dialect == SQLite {
		db.SetMaxOpenConns(1)
	}

	tablePrefix := cfg.TablePrefix
	if tablePrefix == "" {
		tablePrefix = defaultTablePrefix
	}

	return &Store{
		db:      db,
		dialect: cfg.Dialect,
		queries: getDialectQueries(cfg.Dialect, tablePrefix),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(s.queries.schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateUser inserts a user and sets its generated ID.
func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if s.queries.returning {
		err := s.db.QueryRowContext(ctx, s.queries.insertUser,
			user.Email,
			user.PasswordHash,
			user.CreatedAt,
		).Scan(&user.ID)
		return mapError(err)
	}

	result, err := s.db.ExecContext(ctx, s.queries.insertUser,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		return mapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	user := &store.User{}
	err := s.db.QueryRowContext(ctx, s.queries.selectUserByEmail, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all users ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx, s.queries.selectUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		user := &store.User{}
		if err := rows.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsers returns the number of users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, s.queries.countUsers).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// mapError translates driver errors into store errors.
func mapError(err error) error {
	if err != nil && isUniqueViolation(err) {
		return store.ErrDuplicateEmail
	}
	return err
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
