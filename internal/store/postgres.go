package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore keeps submissions in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// Create inserts the submission unless its key exists.
//
// The primary key on id is the dedup point; concurrent inserts for one key
// serialize on it and only the winner gets a row back from RETURNING.
func (p *PostgresStore) Create(ctx context.Context, rec models.SubmissionRecord) (Outcome, error) {
	payload := rec.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	var receivedAt time.Time
	err := p.pool.QueryRow(ctx, `
		INSERT INTO submissions(id, timestamp, phone, name, inquiry, payload)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING
		RETURNING received_at
	`, rec.Key, rec.Event.Timestamp, rec.Event.Phone, rec.Event.Name, rec.Event.Inquiry, string(payload)).Scan(&receivedAt)

	if err == nil {
		return Created, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return AlreadyExists, nil
	}
	return 0, storeError(err, "insert submission", rec.Key)
}
