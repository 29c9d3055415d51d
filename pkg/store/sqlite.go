package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// Driver selects the SQL driver: "modernc" (pure Go, default) or
	// "mattn" (cgo).
	Driver string `yaml:"driver"`

	// MaxOpenConns caps open connections. Default 10.
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns caps idle connections. Default 5.
	MaxIdleConns int `yaml:"max_idle_conns"`

	// BusyTimeout is how long a locked database blocks a statement.
	// Default 5s.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// DefaultSQLiteConfig returns working defaults.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:         "data/conversations.db",
		Driver:       "modernc",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLite is the durable Store backed by a SQLite database.
type SQLite struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger
}

// NewSQLite opens the database, applies the schema, and verifies the
// schema version.
func NewSQLite(cfg SQLiteConfig, logger *slog.Logger) (*SQLite, error) {
	if cfg.Path == "" {
		cfg = DefaultSQLiteConfig()
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	driverName, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.Path)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Cause: err}
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLite{
		db:     db,
		config: cfg,
		logger: logger.With("component", "store.sqlite"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("sqlite store initialized", "path", cfg.Path, "driver", driverName)
	return s, nil
}

// driverName maps the config value onto a registered database/sql
// driver.
func driverName(driver string) (string, error) {
	switch driver {
	case "", "modernc":
		return "sqlite", nil
	case "mattn", "cgo":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unknown sqlite driver %q (want modernc or mattn)", driver)
	}
}

func (s *SQLite) initialize() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return &StorageError{Backend: "sqlite", Op: "pragma", Cause: err}
		}
	}

	if _, err := s.db.Exec(schema); err != nil {
		return &StorageError{Backend: "sqlite", Op: "create_schema", Cause: err}
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return &StorageError{Backend: "sqlite", Op: "insert_schema_version", Cause: err}
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return &StorageError{Backend: "sqlite", Op: "get_schema_version", Cause: err}
	}
	if version != SchemaVersion {
		return &StorageError{
			Backend: "sqlite",
			Op:      "schema_version",
			Cause:   fmt.Errorf("expected version %d, found %d", SchemaVersion, version),
		}
	}
	return nil
}

func (s *SQLite) EnsureConversation(ctx context.Context, id string) (*Conversation, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)`,
		id, now, now,
	)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "ensure_conversation", Cause: err}
	}
	return s.Get(ctx, id)
}

func (s *SQLite) AppendExchange(ctx context.Context, conversationID string, ex Exchange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "begin", Cause: err}
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM conversations WHERE id = ?`, conversationID,
	).Scan(&exists)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "append_exchange", Cause: err}
	}
	if exists == 0 {
		return &NotFoundError{ConversationID: conversationID}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO exchanges
			(id, conversation_id, request_id, input, response, status, blocking_layer, level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, conversationID, ex.RequestID, ex.Input, nullable(ex.Response),
		ex.Status, nullable(ex.BlockingLayer), ex.Level, ex.CreatedAt,
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "append_exchange", Cause: err}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), conversationID,
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "touch_conversation", Cause: err}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Backend: "sqlite", Op: "commit", Cause: err}
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*Conversation, error) {
	conv := &Conversation{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ConversationID: id}
	}
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "get_conversation", Cause: err}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, input, COALESCE(response, ''), status,
		       COALESCE(blocking_layer, ''), level, created_at
		FROM exchanges
		WHERE conversation_id = ?
		ORDER BY created_at, id`, id,
	)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "get_exchanges", Cause: err}
	}
	defer rows.Close()

	for rows.Next() {
		var ex Exchange
		if err := rows.Scan(&ex.ID, &ex.RequestID, &ex.Input, &ex.Response,
			&ex.Status, &ex.BlockingLayer, &ex.Level, &ex.CreatedAt); err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "scan_exchange", Cause: err}
		}
		conv.Exchanges = append(conv.Exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "iterate_exchanges", Cause: err}
	}
	return conv, nil
}

func (s *SQLite) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `
		SELECT c.id, c.created_at, c.updated_at, COUNT(e.id)
		FROM conversations c
		LEFT JOIN exchanges e ON e.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list", Cause: err}
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.CreatedAt, &sum.UpdatedAt, &sum.ExchangeCount); err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "scan_summary", Cause: err}
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "delete", Cause: err}
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &NotFoundError{ConversationID: id}
	}
	return nil
}

func (s *SQLite) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE updated_at < ?`, cutoff,
	)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "prune", Cause: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "prune", Cause: err}
	}
	if deleted > 0 {
		s.logger.Info("pruned conversations", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM conversations`).Scan(&n); err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "count", Cause: err}
	}
	return n, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
