package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS submissions (
    id          TEXT PRIMARY KEY,
    timestamp   TEXT NOT NULL,
    phone       TEXT NOT NULL,
    name        TEXT NOT NULL,
    inquiry     TEXT NOT NULL,
    payload     TEXT NOT NULL,
    received_at TEXT NOT NULL
);`

// SQLiteStore keeps submissions in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	Now func() time.Time
}

// NewSQLiteStore opens (and creates if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{
		db: db,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, rec models.SubmissionRecord) (Outcome, error) {
	payload := rec.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions(id, timestamp, phone, name, inquiry, payload, received_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO NOTHING
	`, rec.Key, rec.Event.Timestamp, rec.Event.Phone, rec.Event.Name, rec.Event.Inquiry,
		string(payload), s.Now().Format(time.RFC3339Nano))
	if err != nil {
		return 0, storeError(err, "insert submission", rec.Key)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeError(err, "insert submission", rec.Key)
	}
	if n == 0 {
		return AlreadyExists, nil
	}
	return Created, nil
}

// count returns the number of stored submissions.
func (s *SQLiteStore) count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
