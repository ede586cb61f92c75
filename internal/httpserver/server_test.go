package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/gateway"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/queue"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/store"
)

////////////////////////////////////////////////////////////////////////////////
// END-TO-END SUITE
//
//   Client → /webhook → dedup store → local queue → /send-sms → gateway
//
// Everything runs in-process: the memory store, the local redelivering queue
// and a stub gateway behind a real HTTP listener.
////////////////////////////////////////////////////////////////////////////////

type stubGateway struct {
	mu       sync.Mutex
	sent     []gateway.Message
	failures int // fail this many sends before succeeding
}

func (g *stubGateway) Send(_ context.Context, msg gateway.Message) (gateway.DeliveryResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, msg)
	if g.failures > 0 {
		g.failures--
		return gateway.DeliveryResult{Failed: 1, Reason: "carrier rejected"}, nil
	}
	return gateway.DeliveryResult{Registered: 1}, nil
}

func (g *stubGateway) Sent() []gateway.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.Message(nil), g.sent...)
}

// recordStore counts the records the memory store created.
type recordStore struct {
	*store.MemoryStore
	mu      sync.Mutex
	created int
}

func (s *recordStore) Create(ctx context.Context, rec models.SubmissionRecord) (store.Outcome, error) {
	out, err := s.MemoryStore.Create(ctx, rec)
	if err == nil && out == store.Created {
		s.mu.Lock()
		s.created++
		s.mu.Unlock()
	}
	return out, err
}

func (s *recordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

type harness struct {
	srv   *httptest.Server
	store *recordStore
	queue *queue.LocalQueue
	gw    *stubGateway
}

func newHarness(t *testing.T, token string, gw *stubGateway) *harness {
	t.Helper()

	h := &harness{store: &recordStore{MemoryStore: store.NewMemoryStore()}, gw: gw}
	h.queue = queue.NewLocalQueue(queue.LocalOptions{
		Workers:     2,
		MaxAttempts: 5,
		Backoff:     queue.Exponential{Initial: time.Millisecond, Max: 5 * time.Millisecond},
		Logger:      zerolog.Nop(),
	})

	renderer, err := gateway.NewRenderer("")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	// The router needs the listener URL for task routing, so start the server first.
	var router http.Handler
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	router = NewRouter(Deps{
		Store:         h.store,
		Queue:         h.queue,
		Sender:        gw,
		Renderer:      renderer,
		Logger:        zerolog.Nop(),
		DispatchURL:   h.srv.URL + "/send-sms",
		DispatchToken: token,
		SMSSender:     "0212345678",
	})

	t.Cleanup(func() {
		_ = h.queue.Close()
		h.srv.Close()
	})
	return h
}

// postJSON performs a POST with JSON body.
func (h *harness) postJSON(t *testing.T, path string, payload any, headers map[string]string) (int, []byte) {
	t.Helper()

	b, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, h.srv.URL+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func (h *harness) get(t *testing.T, path string) int {
	t.Helper()
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Get(h.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	_ = resp.Body.Close()
	return resp.StatusCode
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.queue.Drain(ctx); err != nil {
		t.Fatalf("queue did not drain: %v", err)
	}
}

func event(ts string) map[string]string {
	return map[string]string{"timestamp": ts, "phone": "+15551234567", "name": "Ana", "inquiry": "loan"}
}

////////////////////////////////////////////////////////////////////////////////
// HEALTH & READINESS TESTS
////////////////////////////////////////////////////////////////////////////////

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t, "", &stubGateway{})
	if s := h.get(t, "/health"); s != http.StatusOK {
		t.Fatalf("health expected 200 got %d", s)
	}
	if s := h.get(t, "/ready"); s != http.StatusOK {
		t.Fatalf("ready expected 200 got %d", s)
	}
}

////////////////////////////////////////////////////////////////////////////////
// CORE SYSTEM BEHAVIOR TESTS
////////////////////////////////////////////////////////////////////////////////

// A submission posted twice is accepted once and notified once.
func TestWebhook_DuplicateNotifiesOnce(t *testing.T) {
	gw := &stubGateway{}
	h := newHarness(t, "queue-secret", gw)

	if s, _ := h.postJSON(t, "/webhook", event("t1"), nil); s != http.StatusAccepted {
		t.Fatalf("first post expected 202 got %d", s)
	}
	if s, _ := h.postJSON(t, "/webhook", event("t1"), nil); s != http.StatusOK {
		t.Fatalf("second post expected 200 got %d", s)
	}
	h.drain(t)

	sent := gw.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 SMS got %d", len(sent))
	}
	if sent[0].To != "+15551234567" {
		t.Fatalf("unexpected recipient %q", sent[0].To)
	}
	if h.store.Len() != 1 {
		t.Fatalf("expected 1 record got %d", h.store.Len())
	}
}

// A failed delivery is redelivered by the queue until the gateway accepts it.
func TestSendSMS_FailureIsRedelivered(t *testing.T) {
	gw := &stubGateway{failures: 2}
	h := newHarness(t, "", gw)

	if s, _ := h.postJSON(t, "/webhook", event("t2"), nil); s != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", s)
	}
	h.drain(t)

	if n := len(gw.Sent()); n != 3 {
		t.Fatalf("expected 3 send attempts got %d", n)
	}
}

func TestSendSMS_RejectsCallsWithoutQueueToken(t *testing.T) {
	gw := &stubGateway{}
	h := newHarness(t, "queue-secret", gw)

	payload := map[string]string{"phone": "+15551234567", "name": "Ana", "inquiry": "loan"}
	if s, _ := h.postJSON(t, "/send-sms", payload, nil); s != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", s)
	}
	s, body := h.postJSON(t, "/send-sms", payload, map[string]string{queue.HeaderDispatchToken: "queue-secret"})
	if s != http.StatusNoContent || len(body) != 0 {
		t.Fatalf("expected empty 204 got %d %q", s, body)
	}
	if len(gw.Sent()) != 1 {
		t.Fatalf("expected 1 SMS got %d", len(gw.Sent()))
	}
}

func TestWebhook_ValidationErrorBody(t *testing.T) {
	h := newHarness(t, "", &stubGateway{})

	s, body := h.postJSON(t, "/webhook", map[string]string{"timestamp": "t", "phone": "p", "name": "n"}, nil)
	if s != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", s)
	}
	if string(body) != fmt.Sprintf(`{"error":"Missing '%s'"}`, "inquiry") {
		t.Fatalf("unexpected body %s", body)
	}
	if h.store.Len() != 0 {
		t.Fatal("invalid submission was stored")
	}
}
