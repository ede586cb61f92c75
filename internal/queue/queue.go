// Package queue schedules dispatch tasks for asynchronous delivery.
//
// The queue owns redelivery: a task is retried while its target answers
// non-2xx, bounded by the queue's own retry budget.
package queue

import (
	"context"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// HeaderDispatchToken carries the shared secret /send-sms checks.
	HeaderDispatchToken = "X-Dispatch-Token"
	// HeaderRetryCount is set by the local queue on every attempt, starting at 0.
	HeaderRetryCount = "X-Dispatch-Retry-Count"
	// HeaderTaskName identifies the task on every attempt.
	HeaderTaskName = "X-Dispatch-Task-Name"

	TextCodeEnqueueFailed = "DISPATCH_ENQUEUE_FAILED"
)

var (
	ErrQueueClosed = errors.New("queue: closed")
	ErrQueueFull   = errors.New("queue: buffer full")
)

// Task is one HTTP request the queue delivers to its target.
type Task struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
}

// Handle identifies an enqueued task.
type Handle struct {
	Name string
}

// Enqueuer submits tasks for deferred delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, t Task) (Handle, error)
	Close() error
}

// NewDispatchTask builds the POST the queue makes to the dispatch endpoint.
func NewDispatchTask(url string, body []byte, token string) Task {
	headers := map[string]string{"Content-Type": "application/json"}
	if token != "" {
		headers[HeaderDispatchToken] = token
	}
	return Task{
		URL:     url,
		Method:  http.MethodPost,
		Headers: headers,
		Body:    body,
	}
}

func enqueueError(source error, url string) error {
	err := goerrors.Wrap(source, goerrors.CategoryExternal, "queue: enqueue failed").
		WithCode(http.StatusBadGateway).
		WithTextCode(TextCodeEnqueueFailed)
	err.WithMetadata(map[string]any{"url": url})
	return err
}
