package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/autoanswer/pkg/types"

	_ "modernc.org/sqlite"
)

// deleteBatchSize keeps DELETE statements under SQLite's variable limit.
const deleteBatchSize = 500

// SQLiteBackend stores entries in a single SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at dbPath.
// Use ":memory:" for a throwaway database.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS answer_cache (
		question_id TEXT PRIMARY KEY,
		unit TEXT NOT NULL,
		task TEXT NOT NULL,
		sub_task TEXT NOT NULL DEFAULT '',
		question_type TEXT NOT NULL,
		question_text TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 1.0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0,
		last_accessed INTEGER NOT NULL DEFAULT 0,
		verified INTEGER NOT NULL DEFAULT 0,
		metadata TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_unit_task ON answer_cache (unit, task);
	CREATE INDEX IF NOT EXISTS idx_question_type ON answer_cache (question_type);
	CREATE INDEX IF NOT EXISTS idx_created_at ON answer_cache (created_at);
	`
	_, err := b.db.Exec(schema)
	return err
}

// Name implements Backend.
func (b *SQLiteBackend) Name() string {
	return "sqlite"
}

// LoadAll implements Backend.
func (b *SQLiteBackend) LoadAll(ctx context.Context) ([]Entry, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT question_id, unit, task, sub_task, question_type, question_text, correct_answer,
		       confidence, created_at, updated_at, access_count, last_accessed, verified, metadata
		FROM answer_cache`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                  Entry
			qType, metadata                    string
			createdAt, updatedAt, lastAccessed int64
			verified                           int
		)
		if err := rows.Scan(&e.ID, &e.Unit, &e.Task, &e.SubTask, &qType, &e.QuestionText, &e.CorrectAnswer,
			&e.Confidence, &createdAt, &updatedAt, &e.AccessCount, &lastAccessed, &verified, &metadata); err != nil {
			return nil, err
		}
		e.QuestionType = types.ParseQuestionType(qType)
		e.CreatedAt = fromUnixNano(createdAt)
		e.UpdatedAt = fromUnixNano(updatedAt)
		e.LastAccessed = fromUnixNano(lastAccessed)
		e.Verified = verified != 0
		if metadata != "" {
			// Unreadable metadata is dropped rather than failing the load
			_ = json.Unmarshal([]byte(metadata), &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Upsert implements Backend.
func (b *SQLiteBackend) Upsert(ctx context.Context, e Entry) error {
	metadata := ""
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(raw)
	}

	verified := 0
	if e.Verified {
		verified = 1
	}

	_, err := b.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO answer_cache (
			question_id, unit, task, sub_task, question_type, question_text, correct_answer,
			confidence, created_at, updated_at, access_count, last_accessed, verified, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Unit, e.Task, e.SubTask, e.QuestionType.String(), e.QuestionText, e.CorrectAnswer,
		e.Confidence, toUnixNano(e.CreatedAt), toUnixNano(e.UpdatedAt), e.AccessCount,
		toUnixNano(e.LastAccessed), verified, metadata,
	)
	return err
}

// Delete implements Backend.
func (b *SQLiteBackend) Delete(ctx context.Context, ids ...string) error {
	for len(ids) > 0 {
		n := min(len(ids), deleteBatchSize)
		batch := ids[:n]
		ids = ids[n:]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		if _, err := b.db.ExecContext(ctx,
			`DELETE FROM answer_cache WHERE question_id IN (`+placeholders+`)`, args...); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
