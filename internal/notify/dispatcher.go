package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeana-hines/group-voice-messaging/internal/repo"
)

// SendClient delivers one text through the SMS gateway.
type SendClient interface {
	Send(ctx context.Context, phoneNumber, message string) (remoteMessageID string, err error)
}

// ReceiptCache records successful deliveries. Optional.
type ReceiptCache interface {
	StoreDelivered(ctx context.Context, notificationID string, remoteMessageID string, sentAt time.Time) error
}

// Dispatcher periodically claims pending notifications and delivers them.
// Claims use FOR UPDATE SKIP LOCKED, so multiple instances can run the loop
// without double-sending.
type Dispatcher struct {
	interval  time.Duration
	batchSize int

	notifications repo.NotificationRepository
	client        SendClient
	receipts      ReceiptCache // nil when Redis is disabled

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(interval time.Duration, batchSize int, notifications repo.NotificationRepository, client SendClient, receipts ReceiptCache) (*Dispatcher, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if batchSize <= 0 {
		return nil, errors.New("batch size must be > 0")
	}
	if notifications == nil || client == nil {
		return nil, errors.New("notifications repo and client must not be nil")
	}
	return &Dispatcher{
		interval:      interval,
		batchSize:     batchSize,
		notifications: notifications,
		client:        client,
		receipts:      receipts,
		done:          make(chan struct{}),
	}, nil
}

func (d *Dispatcher) Start() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)

	go func() {
		defer close(d.done)

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		slog.Info("notification dispatcher started", "interval", d.interval.String())

		d.safeTick(ctx)

		for {
			select {
			case <-ctx.Done():
				slog.Info("notification dispatcher stopping")
				return
			case <-ticker.C:
				d.safeTick(ctx)
			}
		}
	}()

	return true
}

func (d *Dispatcher) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return false
	}

	d.cancel()
	<-d.done
	d.running.Store(false)

	slog.Info("notification dispatcher stopped")
	return true
}

func (d *Dispatcher) IsRunning() bool {
	return d.running.Load()
}

func (d *Dispatcher) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatcher tick panic recovered", "panic", r)
		}
	}()

	start := time.Now()
	sent, failed := d.DeliverBatch(ctx)
	if sent > 0 || failed > 0 {
		slog.Info("dispatcher tick completed",
			"sent", sent, "failed", failed, "duration_ms", time.Since(start).Milliseconds())
	}
}

// DeliverBatch claims up to batchSize pending notifications and delivers
// them, marking each sent or failed as it goes.
func (d *Dispatcher) DeliverBatch(ctx context.Context) (sent int, failed int) {
	pending, err := d.notifications.ClaimPending(ctx, d.batchSize)
	if err != nil {
		slog.Error("failed to claim pending notifications", "err", err)
		return 0, 0
	}

	for _, n := range pending {
		remoteID, err := d.client.Send(ctx, n.RecipientPhone, n.Content)
		if err != nil {
			failed++
			if markErr := d.notifications.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				slog.Error("failed to mark notification failed", "id", n.ID, "err", markErr)
			}
			continue
		}

		sent++
		if err := d.notifications.MarkSent(ctx, n.ID, remoteID); err != nil {
			slog.Error("failed to mark notification sent", "id", n.ID, "err", err)
		}
		if d.receipts != nil {
			if err := d.receipts.StoreDelivered(ctx, n.ID.String(), remoteID, time.Now().UTC()); err != nil {
				slog.Error("failed to cache delivery receipt", "id", n.ID, "err", err)
			}
		}
	}
	return sent, failed
}
