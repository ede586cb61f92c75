package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/gateway"
)

func newSMSRouter(t *testing.T, s *stubSender) http.Handler {
	t.Helper()
	renderer, err := gateway.NewRenderer("")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	r := newEngine()
	RegisterSMSRoutes(r, s, renderer, "0212345678")
	return r
}

func TestSendSMS_SuccessReturns204(t *testing.T) {
	s := &stubSender{result: gateway.DeliveryResult{Registered: 1}}
	w := post(newSMSRouter(t, s), "/send-sms", sampleEvent)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body got %q", w.Body.String())
	}
	if len(s.sent) != 1 {
		t.Fatalf("expected 1 send got %d", len(s.sent))
	}
	msg := s.sent[0]
	if msg.From != "0212345678" || msg.To != "+15551234567" {
		t.Fatalf("unexpected routing %+v", msg)
	}
	if !strings.Contains(msg.Text, "Ana") || !strings.Contains(msg.Text, "loan") {
		t.Fatalf("template not filled: %q", msg.Text)
	}
}

func TestSendSMS_FailedCountReturns500(t *testing.T) {
	s := &stubSender{result: gateway.DeliveryResult{Failed: 1, Reason: "invalid recipient"}}
	w := post(newSMSRouter(t, s), "/send-sms", sampleEvent)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body got %q", w.Body.String())
	}
}

func TestSendSMS_TransportErrorReturns500(t *testing.T) {
	s := &stubSender{err: errUnavailable}
	if w := post(newSMSRouter(t, s), "/send-sms", sampleEvent); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
}

func TestSendSMS_InvalidPayloadReturns500(t *testing.T) {
	s := &stubSender{}
	if w := post(newSMSRouter(t, s), "/send-sms", `{"name":"Ana"}`); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	if len(s.sent) != 0 {
		t.Fatal("sent despite invalid payload")
	}
}

func TestSendSMS_RedeliveryIsAnIndependentSend(t *testing.T) {
	s := &stubSender{result: gateway.DeliveryResult{Registered: 1}}
	r := newSMSRouter(t, s)
	for i := 0; i < 2; i++ {
		if w := post(r, "/send-sms", sampleEvent); w.Code != http.StatusNoContent {
			t.Fatalf("attempt %d: expected 204 got %d", i, w.Code)
		}
	}
	if len(s.sent) != 2 {
		t.Fatalf("expected 2 sends got %d", len(s.sent))
	}
}
