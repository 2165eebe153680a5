package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
)

// SetupSchema initializes the corpus table in the provided database. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaMessages = `
CREATE TABLE IF NOT EXISTS corpus_messages (
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    message_id TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (guild_id, user_id, message_id)
);
`
	if _, err := db.Exec(schemaMessages); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}
	return nil
}

// SQLiteStore is a Store backed by a SQL database using the SQLite dialect.
// It holds prepared statements for every operation.
type SQLiteStore struct {
	db             *sql.DB
	stmtGetCorpus  *sql.Stmt
	stmtInsert     *sql.Stmt
	stmtEdit       *sql.Stmt
	stmtDelete     *sql.Stmt
	stmtGetKeys    *sql.Stmt
	stmtCountByKey *sql.Stmt
	logger         *slog.Logger
}

// NewSQLiteStore creates a SQLiteStore. SetupSchema must have been called on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	stmtGetCorpus, err := db.Prepare(`SELECT content FROM corpus_messages WHERE guild_id = ? AND user_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtInsert, err := db.Prepare(`INSERT OR IGNORE INTO corpus_messages (guild_id, user_id, message_id, content, created_at) VALUES (?, ?, ?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtEdit, err := db.Prepare(`UPDATE corpus_messages SET content = ? WHERE guild_id = ? AND user_id = ? AND message_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtDelete, err := db.Prepare(`DELETE FROM corpus_messages WHERE guild_id = ? AND user_id = ? AND message_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetKeys, err := db.Prepare(`SELECT DISTINCT guild_id, user_id FROM corpus_messages;`)
	if err != nil {
		return nil, err
	}

	stmtCountByKey, err := db.Prepare(`SELECT COUNT(*) FROM corpus_messages WHERE guild_id = ? AND user_id = ?;`)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{
		db:             db,
		stmtGetCorpus:  stmtGetCorpus,
		stmtInsert:     stmtInsert,
		stmtEdit:       stmtEdit,
		stmtDelete:     stmtDelete,
		stmtGetKeys:    stmtGetKeys,
		stmtCountByKey: stmtCountByKey,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the store.
func (s *SQLiteStore) Close() {
	_ = s.stmtGetCorpus.Close()
	_ = s.stmtInsert.Close()
	_ = s.stmtEdit.Close()
	_ = s.stmtDelete.Close()
	_ = s.stmtGetKeys.Close()
	_ = s.stmtCountByKey.Close()
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *SQLiteStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetCorpus returns every recorded fragment for key.
func (s *SQLiteStore) GetCorpus(ctx context.Context, key Key) ([]string, error) {
	rows, err := s.stmtGetCorpus.QueryContext(ctx, key.GuildID, key.UserID)
	if err != nil {
		return nil, fmt.Errorf("could not query corpus for %s: %w", key, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var fragments []string
	for rows.Next() {
		var content string
		if err = rows.Scan(&content); err != nil {
			return nil, err
		}
		fragments = append(fragments, content)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fragments, nil
}

// Record stores a message and reports whether it was newly recorded.
func (s *SQLiteStore) Record(ctx context.Context, msg *Message) (bool, error) {
	text := msg.Text()
	if text == "" {
		return false, nil
	}
	res, err := s.stmtInsert.ExecContext(ctx, msg.GuildID, msg.AuthorID, msg.ID, text, msg.CreatedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("could not record message %s: %w", msg.ID, err)
	}
	rowsAffected, _ := res.RowsAffected()
	return rowsAffected > 0, nil
}

// Edit replaces the text of a recorded message.
func (s *SQLiteStore) Edit(ctx context.Context, key Key, messageID, content string) error {
	text := CleanText(content)
	if text == "" {
		return s.Delete(ctx, key, messageID)
	}
	res, err := s.stmtEdit.ExecContext(ctx, text, key.GuildID, key.UserID, messageID)
	if err != nil {
		return fmt.Errorf("could not edit message %s: %w", messageID, err)
	}
	if rowsAffected, _ := res.RowsAffected(); rowsAffected == 0 {
		return fmt.Errorf("%w: message %s in %s", ErrNotFound, messageID, key)
	}
	return nil
}

// Delete removes a message.
func (s *SQLiteStore) Delete(ctx context.Context, key Key, messageID string) error {
	res, err := s.stmtDelete.ExecContext(ctx, key.GuildID, key.UserID, messageID)
	if err != nil {
		return fmt.Errorf("could not delete message %s: %w", messageID, err)
	}
	rowsAffected, _ := res.RowsAffected()
	s.logger.DebugContext(ctx, "Message deleted",
		slog.String("key", key.String()),
		slog.String("message_id", messageID),
		slog.Int64("rows_affected", rowsAffected),
	)
	return nil
}

// Keys lists every key with at least one recorded message.
func (s *SQLiteStore) Keys(ctx context.Context) ([]Key, error) {
	rows, err := s.stmtGetKeys.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var keys []Key
	for rows.Next() {
		var key Key
		if err = rows.Scan(&key.GuildID, &key.UserID); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Count returns the number of messages recorded for key.
func (s *SQLiteStore) Count(ctx context.Context, key Key) (int, error) {
	var count int
	err := s.stmtCountByKey.QueryRowContext(ctx, key.GuildID, key.UserID).Scan(&count)
	return count, err
}
