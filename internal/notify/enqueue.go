// Package notify queues and delivers "new voice message" texts. Saving a
// voicemail enqueues one notification row per recipient; the Dispatcher
// drains the outbox in the background through the SMS gateway.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jeana-hines/group-voice-messaging/internal/model"
	"github.com/jeana-hines/group-voice-messaging/internal/repo"
)

// Enqueuer turns a saved message into a pending notification row. Failures
// are logged and swallowed: a missed text must never fail the call flow.
type Enqueuer struct {
	notifications repo.NotificationRepository
	users         repo.UserRepository
}

func NewEnqueuer(notifications repo.NotificationRepository, users repo.UserRepository) *Enqueuer {
	return &Enqueuer{notifications: notifications, users: users}
}

func (e *Enqueuer) MessageSaved(ctx context.Context, m *model.Message) {
	sender := m.FromNumber
	if u, err := e.users.GetByPhone(ctx, m.FromNumber); err == nil {
		sender = u.Name
	}

	n := &model.Notification{
		ID:             uuid.New(),
		RecipientPhone: m.ToNumber,
		Content:        fmt.Sprintf("You have a new voice message from %s.", sender),
		Status:         model.NotificationPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := e.notifications.Enqueue(ctx, n); err != nil {
		slog.Error("failed to enqueue notification", "to", m.ToNumber, "err", err)
	}
}
