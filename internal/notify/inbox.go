package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/huybank/bankapp/internal/domain"
	"github.com/huybank/bankapp/internal/metrics"
)

// ReadAcker acknowledges a read notification with the backend.
type ReadAcker interface {
	MarkNotificationRead(ctx context.Context, id string) error
}

// Inbox is the notification history, newest first. Pushed events are
// prepended as they arrive; the fetched history replaces the whole list on
// a dashboard load.
type Inbox struct {
	mu      sync.Mutex
	events  []domain.NotificationEvent
	acker   ReadAcker
	alerter Alerter

	// acking holds the ids with a backend acknowledgement in flight, so
	// concurrent MarkRead calls for the same id send exactly one ack.
	acking map[string]struct{}

	// onBalance receives the post-transaction balance from pushed events.
	// It is the only path that mutates the displayed balance outside a full
	// account re-fetch.
	onBalance func(balance int64)
}

func NewInbox(acker ReadAcker, alerter Alerter) *Inbox {
	return &Inbox{acker: acker, alerter: alerter, acking: make(map[string]struct{})}
}

// OnBalance registers the live balance setter.
func (in *Inbox) OnBalance(fn func(balance int64)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.onBalance = fn
}

// Load replaces the inbox with fetched history, sorted newest first.
func (in *Inbox) Load(events []domain.NotificationEvent) {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b domain.NotificationEvent) int {
		return b.OccurredAt.Compare(a.OccurredAt)
	})

	in.mu.Lock()
	defer in.mu.Unlock()
	in.events = sorted
}

// Push prepends a freshly pushed event, applies its balance if it carries
// one, and rings the alert. An alert failure never disturbs the event
// itself.
func (in *Inbox) Push(event domain.NotificationEvent) {
	in.mu.Lock()
	in.events = append([]domain.NotificationEvent{event}, in.events...)
	onBalance := in.onBalance
	in.mu.Unlock()

	if event.BalanceAfter != nil && onBalance != nil {
		metrics.BalanceMergesTotal.Inc()
		onBalance(*event.BalanceAfter)
	}

	if in.alerter != nil {
		if err := in.alerter.Alert(); err != nil {
			metrics.AlertFailuresTotal.Inc()
			slog.Warn("Failed to play notification alert", "error", err)
		}
	}
}

// All returns a copy of the inbox, newest first.
func (in *Inbox) All() []domain.NotificationEvent {
	in.mu.Lock()
	defer in.mu.Unlock()
	return slices.Clone(in.events)
}

// UnreadCount reports how many events are still unread.
func (in *Inbox) UnreadCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()

	count := 0
	for _, event := range in.events {
		if !event.Read {
			count++
		}
	}
	return count
}

// MarkRead flips an event to read after the backend acknowledges it.
// Marking an already read event is a no-op and sends nothing; a second
// call while the acknowledgement is still in flight is absorbed too.
func (in *Inbox) MarkRead(ctx context.Context, id string) error {
	in.mu.Lock()
	unread := false
	for i := range in.events {
		if in.events[i].ID == id && !in.events[i].Read {
			unread = true
			break
		}
	}
	if _, inFlight := in.acking[id]; !unread || inFlight {
		in.mu.Unlock()
		return nil
	}
	in.acking[id] = struct{}{}
	in.mu.Unlock()

	err := in.acker.MarkNotificationRead(ctx, id)

	in.mu.Lock()
	delete(in.acking, id)
	if err == nil {
		for i := range in.events {
			if in.events[i].ID == id {
				in.events[i].Read = true
			}
		}
	}
	in.mu.Unlock()
	return err
}
