// Package repo defines the persistence interfaces the call flow depends on
// and their Postgres implementations.
package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jeana-hines/group-voice-messaging/internal/model"
)

// ErrNotFound is returned by single-row lookups when no row matches.
var ErrNotFound = errors.New("not found")

// UserRepository is the directory: read-only lookup of callers and group
// membership. User rows are managed by the external admin surface.
//
// List results are ordered by (name, phone_number) so that an ordinal chosen
// from a spoken roster resolves to the same user on the follow-up request.
// GetByPhone returns Groups in stored order; that order drives the
// digit-to-group mapping at the main menu.
type UserRepository interface {
	GetByPhone(ctx context.Context, phoneNumber string) (*model.User, error)
	ListContacts(ctx context.Context, phoneNumber string, groups []string) ([]model.User, error)
	ListGroupMembers(ctx context.Context, group string) ([]model.User, error)
}

// MessageRepository is the voice message store.
type MessageRepository interface {
	Save(ctx context.Context, m *model.Message) error
	// SaveAll persists each message independently, continuing past
	// failures. It returns how many were saved and the joined errors for
	// the rest; there is no rollback of a partial batch.
	SaveAll(ctx context.Context, msgs []*model.Message) (int, error)
	CountUnread(ctx context.Context, toNumber string) (int, error)
	// OldestUnread returns the unread message with the minimum timestamp
	// for the recipient, or ErrNotFound when none remain.
	OldestUnread(ctx context.Context, toNumber string) (*model.Message, error)
	// Archive sets played=true. Archiving an already-played message is a
	// no-op, so duplicate archive callbacks are harmless.
	Archive(ctx context.Context, id uuid.UUID) error
	ListArchived(ctx context.Context, toNumber string, limit, offset int) ([]model.Message, error)
}

// NotificationRepository is the SMS notification outbox.
type NotificationRepository interface {
	Enqueue(ctx context.Context, n *model.Notification) error
	ClaimPending(ctx context.Context, limit int) ([]model.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, remoteMessageID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}
