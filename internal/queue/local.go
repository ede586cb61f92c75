package queue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalOptions configures a LocalQueue. Zero values get defaults.
type LocalOptions struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	Backoff     Exponential
	Client      *http.Client
	Logger      zerolog.Logger
}

// LocalQueue is an in-process stand-in for a hosted task queue.
//
// Each attempt POSTs the task to its URL. A 2xx response completes the task;
// anything else is redelivered after Backoff until MaxAttempts, after which
// the task is abandoned and logged. Tasks do not survive a restart.
type LocalQueue struct {
	opts  LocalOptions
	tasks chan *localTask
	stop  chan struct{}

	// ctx aborts in-flight attempts when the queue closes.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	workers sync.WaitGroup
	pending sync.WaitGroup
}

type localTask struct {
	name    string
	task    Task
	attempt int
}

func NewLocalQueue(opts LocalOptions) *LocalQueue {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Backoff.Initial <= 0 {
		opts.Backoff.Initial = time.Second
	}
	if opts.Backoff.Max <= 0 {
		opts.Backoff.Max = time.Minute
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &LocalQueue{
		opts:   opts,
		tasks:  make(chan *localTask, opts.Buffer),
		stop:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < opts.Workers; i++ {
		q.workers.Add(1)
		go q.work()
	}
	return q
}

func (q *LocalQueue) Enqueue(_ context.Context, t Task) (Handle, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return Handle{}, enqueueError(ErrQueueClosed, t.URL)
	}

	lt := &localTask{name: "local/" + uuid.NewString(), task: t}
	q.pending.Add(1)
	select {
	case q.tasks <- lt:
		return Handle{Name: lt.name}, nil
	default:
		q.pending.Done()
		return Handle{}, enqueueError(ErrQueueFull, t.URL)
	}
}

// Drain blocks until every enqueued task has completed or been abandoned.
func (q *LocalQueue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close aborts in-flight attempts and stops the workers. Buffered tasks are
// dropped at once; a task waiting for a retry is dropped when its timer fires.
func (q *LocalQueue) Close() error {
	// Cancel before locking so a requeue blocked on a full buffer gets unstuck
	// by workers whose attempts now fail fast.
	q.cancel()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.stop)
	q.mu.Unlock()

	q.workers.Wait()

	dropped := 0
drain:
	for {
		select {
		case <-q.tasks:
			dropped++
			q.pending.Done()
		default:
			break drain
		}
	}
	if dropped > 0 {
		q.opts.Logger.Warn().Int("tasks", dropped).Msg("local queue closed with undelivered tasks")
	}
	return nil
}

func (q *LocalQueue) work() {
	defer q.workers.Done()
	for {
		select {
		case <-q.stop:
			return
		case lt := <-q.tasks:
			q.attempt(lt)
		}
	}
}

func (q *LocalQueue) attempt(lt *localTask) {
	lt.attempt++
	log := q.opts.Logger.With().
		Str("task", lt.name).
		Int("attempt", lt.attempt).
		Logger()

	err := q.deliver(lt)
	if err == nil {
		log.Debug().Msg("task delivered")
		q.pending.Done()
		return
	}
	if q.ctx.Err() != nil {
		log.Warn().Err(err).Msg("task dropped: queue closed")
		q.pending.Done()
		return
	}

	if lt.attempt >= q.opts.MaxAttempts {
		log.Error().Err(err).Msg("task abandoned after retry budget exhausted")
		q.pending.Done()
		return
	}

	delay := q.opts.Backoff.Delay(lt.attempt)
	log.Warn().Err(err).Dur("retry_in", delay).Msg("task attempt failed")
	time.AfterFunc(delay, q.requeue(lt))
}

// requeue puts lt back on the buffer unless the queue has closed. Workers keep
// draining the buffer until Close takes the lock, so the send cannot stall it.
func (q *LocalQueue) requeue(lt *localTask) func() {
	return func() {
		q.mu.RLock()
		defer q.mu.RUnlock()
		if q.closed {
			q.pending.Done()
			return
		}
		q.tasks <- lt
	}
}

func (q *LocalQueue) deliver(lt *localTask) error {
	method := lt.task.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(q.ctx, method, lt.task.URL, bytes.NewReader(lt.task.Body))
	if err != nil {
		return err
	}
	for k, v := range lt.task.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set(HeaderTaskName, lt.name)
	req.Header.Set(HeaderRetryCount, strconv.Itoa(lt.attempt-1))

	resp, err := q.opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("target responded %d", resp.StatusCode)
	}
	return nil
}
