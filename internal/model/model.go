package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a directory entry. PhoneNumber is the identity key; Groups is the
// stored group list whose order drives the digit-to-group menu mapping.
type User struct {
	PhoneNumber string
	Name        string
	Groups      []string
}

// Message is one delivered voice message. ToNumber is always a single
// individual recipient; a group send materializes as one Message per member.
// Groups records which group triggered the delivery (empty for individual
// sends) and is display-only.
type Message struct {
	ID           uuid.UUID
	FromNumber   string
	ToNumber     string
	RecordingURL string
	Played       bool
	Timestamp    time.Time
	Groups       []string
}

// NotificationStatus is the outbox lifecycle of a "new voice message" text.
type NotificationStatus string

const (
	NotificationPending    NotificationStatus = "pending"
	NotificationProcessing NotificationStatus = "processing"
	NotificationSent       NotificationStatus = "sent"
	NotificationFailed     NotificationStatus = "failed"
)

// Notification is one queued SMS telling a recipient they have a new voice
// message waiting. Rows are claimed and delivered by the dispatcher.
type Notification struct {
	ID              uuid.UUID
	RecipientPhone  string
	Content         string
	Status          NotificationStatus
	AttemptCount    int
	LastError       *string
	RemoteMessageID *string
	SentAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
