package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/gateway"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/queue"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/store"
)

// countingStore wraps MemoryStore and records every write attempt and
// every key it created.
type countingStore struct {
	*store.MemoryStore
	mu      sync.Mutex
	writes  int
	created map[string]bool
	err     error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: store.NewMemoryStore(), created: map[string]bool{}}
}

func (s *countingStore) Create(ctx context.Context, rec models.SubmissionRecord) (store.Outcome, error) {
	s.mu.Lock()
	s.writes++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	out, err := s.MemoryStore.Create(ctx, rec)
	if err == nil && out == store.Created {
		s.mu.Lock()
		s.created[rec.Key] = true
		s.mu.Unlock()
	}
	return out, err
}

// Len returns the number of records created through the store.
func (s *countingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func (s *countingStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created[key]
}

func (s *countingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type recordingQueue struct {
	mu    sync.Mutex
	tasks []queue.Task
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, t queue.Task) (queue.Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return queue.Handle{}, q.err
	}
	q.tasks = append(q.tasks, t)
	return queue.Handle{Name: "task-1"}, nil
}

func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) Tasks() []queue.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.Task(nil), q.tasks...)
}

type stubSender struct {
	mu     sync.Mutex
	result gateway.DeliveryResult
	err    error
	sent   []gateway.Message
}

func (s *stubSender) Send(_ context.Context, msg gateway.Message) (gateway.DeliveryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.result, s.err
}

var errUnavailable = errors.New("unavailable")

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
