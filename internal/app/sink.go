package app

import (
	"log/slog"

	"github.com/huybank/bankapp/internal/domain"
	"github.com/huybank/bankapp/internal/notify"
	"github.com/huybank/bankapp/internal/realtime"
)

// InboxSink forwards pushed events into the inbox and logs channel state
// transitions.
type InboxSink struct {
	inbox *notify.Inbox
}

func NewInboxSink(inbox *notify.Inbox) *InboxSink {
	return &InboxSink{inbox: inbox}
}

func (s *InboxSink) OnEvent(event domain.NotificationEvent) {
	s.inbox.Push(event)
}

func (s *InboxSink) OnStateChange(state realtime.State) {
	slog.Info("Push channel state changed", "state", state.String())
}
