package store

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
)

// Outcome is the tagged result of a conditional create.
type Outcome int

const (
	// Created means this call wrote the record; the key was never seen before.
	Created Outcome = iota + 1
	// AlreadyExists means a record with the key was written earlier, by this or a concurrent caller.
	AlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

const TextCodeStoreUnavailable = "STORE_UNAVAILABLE"

// Store is the deduplication store.
//
// Create must be atomic first-writer-wins: among concurrent callers with the
// same key exactly one observes Created. A non-nil error is a store failure
// and carries no outcome.
type Store interface {
	Create(ctx context.Context, rec models.SubmissionRecord) (Outcome, error)
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	ProjectID  string
	Collection string
	DBURL      string
	SQLitePath string
	RedisURL   string
}

// Open connects the configured backend and fails fast if it is unreachable.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendFirestore, "":
		return NewFirestoreStore(ctx, opts.ProjectID, opts.Collection)
	case BackendPostgres:
		st, err := NewPostgresStore(opts.DBURL)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureSchema(); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.SQLitePath)
	case BackendRedis:
		return NewRedisStoreFromURL(ctx, opts.RedisURL)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// storeError wraps a backend failure so callers can tell it apart from AlreadyExists.
func storeError(source error, op string, key string) error {
	err := goerrors.Wrap(source, goerrors.CategoryExternal, "store: "+op+" failed").
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(TextCodeStoreUnavailable)
	if key != "" {
		err.WithMetadata(map[string]any{"key": key})
	}
	return err
}
