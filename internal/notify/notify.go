// Package notify delivers push notifications off the request path. Delivery
// is best effort: failures are logged and never reported to the caller.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Notification struct {
	Destination string            `json:"to"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Queue hands notifications to a fixed pool of workers through a bounded
// buffer. A full buffer drops the notification.
type Queue struct {
	sender      Sender
	logger      *slog.Logger
	sendTimeout time.Duration
	jobs        chan Notification

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewQueue(sender Sender, logger *slog.Logger, workers, size int, sendTimeout time.Duration) *Queue {
	q := &Queue{
		sender:      sender,
		logger:      logger,
		sendTimeout: sendTimeout,
		jobs:        make(chan Notification, max(size, 1)),
	}
	for range max(workers, 1) {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Notify enqueues n without blocking.
func (q *Queue) Notify(ctx context.Context, n Notification) {
	select {
	case q.jobs <- n:
	default:
		q.logger.Warn("notification queue full, dropping notification", "title", n.Title)
	}
}

// Close stops accepting work and waits for queued notifications to drain.
// Notify must not be called after Close.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.jobs) })
	q.wg.Wait()
}

func (q *Queue) work() {
	defer q.wg.Done()
	for n := range q.jobs {
		q.send(n)
	}
}

func (q *Queue) send(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), q.sendTimeout)
	defer cancel()

	start := time.Now()
	if err := q.sender.Send(ctx, n); err != nil {
		q.logger.Warn("notification delivery failed", "title", n.Title, "error", err)
		return
	}
	q.logger.Info("notification delivered", "title", n.Title, "duration_ms", time.Since(start).Milliseconds())
}
