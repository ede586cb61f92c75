package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RequiredFields lists the inbound fields in the order they are validated.
var RequiredFields = []string{"timestamp", "phone", "name", "inquiry"}

// ErrInvalidPayload is returned when the body is not a JSON object of string or
// number fields, or when any string in it carries a NUL character.
var ErrInvalidPayload = errors.New("invalid JSON payload")

// MissingFieldError reports the first required field absent from a payload.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Missing '%s'", e.Field)
}

// InboundEvent is the POST /webhook payload.
// timestamp is caller-supplied and never parsed as a time value.
type InboundEvent struct {
	Timestamp string `json:"timestamp"`
	Phone     string `json:"phone"`
	Name      string `json:"name"`
	Inquiry   string `json:"inquiry"`
}

// DedupKey returns the storage-safe identity of the event.
func (e InboundEvent) DedupKey() string {
	return DedupKey(e.Timestamp, e.Phone)
}

var keyReplacer = strings.NewReplacer(" ", "_", ":", "-")

// DedupKey joins timestamp and phone and replaces spaces with "_" and colons with "-".
func DedupKey(timestamp, phone string) string {
	return keyReplacer.Replace(timestamp + "_" + phone)
}

// SubmissionRecord is the persisted form of an InboundEvent.
// ReceivedAt is assigned by the store at write time.
type SubmissionRecord struct {
	Key        string          `json:"key"`
	Event      InboundEvent    `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// NewSubmissionRecord builds the record written for a first-seen event.
func NewSubmissionRecord(ev InboundEvent, payload json.RawMessage) SubmissionRecord {
	return SubmissionRecord{
		Key:     ev.DedupKey(),
		Event:   ev,
		Payload: payload,
	}
}

// DispatchPayload is the body the queue delivers to POST /send-sms.
type DispatchPayload struct {
	Phone   string `json:"phone"`
	Name    string `json:"name"`
	Inquiry string `json:"inquiry"`
}

// ParseInboundEvent validates a webhook body.
//
// Required fields are checked in RequiredFields order; a JSON null counts as absent.
// Required fields may be strings or numbers; a number keeps its literal text.
// Strings anywhere in the body must not contain NUL, which not every store accepts.
// The returned payload is the compacted body with any extra fields kept.
func ParseInboundEvent(body []byte) (InboundEvent, json.RawMessage, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return InboundEvent{}, nil, err
	}

	vals, err := requiredValues(fields, RequiredFields)
	if err != nil {
		return InboundEvent{}, nil, err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil || containsNUL(doc) {
		return InboundEvent{}, nil, ErrInvalidPayload
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return InboundEvent{}, nil, ErrInvalidPayload
	}

	ev := InboundEvent{
		Timestamp: vals["timestamp"],
		Phone:     vals["phone"],
		Name:      vals["name"],
		Inquiry:   vals["inquiry"],
	}
	return ev, json.RawMessage(buf.Bytes()), nil
}

// ParseDispatchPayload decodes a /send-sms body. Unknown fields are ignored.
func ParseDispatchPayload(body []byte) (DispatchPayload, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return DispatchPayload{}, err
	}

	vals, err := requiredValues(fields, []string{"phone", "name", "inquiry"})
	if err != nil {
		return DispatchPayload{}, err
	}
	return DispatchPayload{
		Phone:   vals["phone"],
		Name:    vals["name"],
		Inquiry: vals["inquiry"],
	}, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, ErrInvalidPayload
	}
	return fields, nil
}

// requiredValues reports the first absent key, then decodes each value as text.
func requiredValues(fields map[string]json.RawMessage, keys []string) (map[string]string, error) {
	for _, k := range keys {
		if !present(fields, k) {
			return nil, &MissingFieldError{Field: k}
		}
	}

	vals := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := textValue(fields[k])
		if err != nil {
			return nil, err
		}
		vals[k] = v
	}
	return vals, nil
}

// textValue accepts a JSON string, or a JSON number as its literal text.
func textValue(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", ErrInvalidPayload
}

func containsNUL(v any) bool {
	switch x := v.(type) {
	case string:
		return strings.IndexByte(x, 0) >= 0
	case map[string]any:
		for k, e := range x {
			if strings.IndexByte(k, 0) >= 0 || containsNUL(e) {
				return true
			}
		}
	case []any:
		for _, e := range x {
			if containsNUL(e) {
				return true
			}
		}
	}
	return false
}

func present(fields map[string]json.RawMessage, k string) bool {
	v, ok := fields[k]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
