package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rafaeljc/petlife/internal/observability"
	"github.com/rafaeljc/petlife/internal/validation"
)

// NotifierConfig bounds the delivery of a single event.
type NotifierConfig struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// BaseDelay is doubled after every failed attempt.
	BaseDelay time.Duration
	// Timeout caps the whole delivery, retries included.
	Timeout time.Duration
}

// Notifier publishes events in the background so request handlers and the
// lifetime worker never wait on the bus.
type Notifier struct {
	logger    *slog.Logger
	publisher Publisher
	cfg       NotifierConfig

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewNotifier creates a notifier on top of publisher.
func NewNotifier(logger *slog.Logger, publisher Publisher, cfg NotifierConfig) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	validation.AssertNotNilInterface(publisher, "event publisher")

	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	cfg.MaxRetries = max(cfg.MaxRetries, 0)

	return &Notifier{
		logger:    logger,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Notify schedules e for delivery and returns immediately. Delivery runs on
// its own context; cancelling the caller's request does not cancel it.
func (n *Notifier) Notify(e Event) {
	n.mu.Lock()
	if n.closing {
		n.mu.Unlock()
		observability.EventsPublished.WithLabelValues(string(e.Type), observability.StatusDropped).Inc()
		n.logger.Warn("event dropped during shutdown", slog.String("event_id", e.ID.String()), slog.String("type", string(e.Type)))
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		n.deliver(e)
	}()
}

func (n *Notifier) deliver(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.Timeout)
	defer cancel()

	delay := n.cfg.BaseDelay
	var err error

retry:
	for attempt := 0; attempt <= n.cfg.MaxRetries; attempt++ {
		if err = n.publisher.Publish(ctx, e); err == nil {
			observability.EventsPublished.WithLabelValues(string(e.Type), observability.StatusSuccess).Inc()
			return
		}
		if attempt == n.cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			break retry
		case <-time.After(delay):
			delay *= 2
		}
	}

	observability.EventsPublished.WithLabelValues(string(e.Type), observability.StatusFailure).Inc()
	n.logger.Warn("event publish failed",
		slog.String("event_id", e.ID.String()),
		slog.String("type", string(e.Type)),
		slog.String("error", err.Error()),
	)
}

// Wait stops accepting new events and blocks until every pending delivery
// finished or ctx expired. Events notified after Wait started are dropped.
func (n *Notifier) Wait(ctx context.Context) error {
	n.mu.Lock()
	n.closing = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
