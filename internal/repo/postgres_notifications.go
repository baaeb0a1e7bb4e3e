package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jeana-hines/group-voice-messaging/internal/model"
)

type PostgresNotificationRepo struct {
	db *sql.DB
}

func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

func (r *PostgresNotificationRepo) Enqueue(ctx context.Context, n *model.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_phone, content, status, attempt_count, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', 0, $4, $4)
	`, n.ID, n.RecipientPhone, n.Content, n.CreatedAt)
	return err
}

func (r *PostgresNotificationRepo) ClaimPending(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, recipient_phone, content, status, attempt_count, created_at, updated_at
		FROM notifications
		WHERE status = 'pending'
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []model.Notification
	for rows.Next() {
		var n model.Notification
		var status string
		if err := rows.Scan(
			&n.ID,
			&n.RecipientPhone,
			&n.Content,
			&status,
			&n.AttemptCount,
			&n.CreatedAt,
			&n.UpdatedAt,
		); err != nil {
			return nil, err
		}
		n.Status = model.NotificationStatus(status)
		pending = append(pending, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	now := time.Now().UTC()
	for _, n := range pending {
		if _, err := tx.ExecContext(ctx, `
			UPDATE notifications
			SET status = 'processing', updated_at = $2
			WHERE id = $1
		`, n.ID, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for i := range pending {
		pending[i].Status = model.NotificationProcessing
		pending[i].UpdatedAt = now
	}
	return pending, nil
}

func (r *PostgresNotificationRepo) MarkSent(ctx context.Context, id uuid.UUID, remoteMessageID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = 'sent',
		    sent_at = now(),
		    remote_message_id = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, remoteMessageID)
	return err
}

func (r *PostgresNotificationRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = 'failed',
		    attempt_count = attempt_count + 1,
		    last_error = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, reason)
	return err
}
