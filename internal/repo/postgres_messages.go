package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jeana-hines/group-voice-messaging/internal/model"
)

type PostgresMessageRepo struct {
	db *sql.DB
}

func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

func (r *PostgresMessageRepo) Save(ctx context.Context, m *model.Message) error {
	groupsJSON, err := json.Marshal(emptyIfNil(m.Groups))
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (id, from_number, to_number, recording_url, played, created_at, groups)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.FromNumber, m.ToNumber, m.RecordingURL, m.Played, m.Timestamp, groupsJSON)
	return err
}

func (r *PostgresMessageRepo) SaveAll(ctx context.Context, msgs []*model.Message) (int, error) {
	saved := 0
	var errs []error
	for _, m := range msgs {
		if err := r.Save(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("save message to %s: %w", m.ToNumber, err))
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

func (r *PostgresMessageRepo) CountUnread(ctx context.Context, toNumber string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM messages
		WHERE to_number = $1 AND played = false
	`, toNumber).Scan(&n)
	return n, err
}

func (r *PostgresMessageRepo) OldestUnread(ctx context.Context, toNumber string) (*model.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, from_number, to_number, recording_url, played, created_at, groups
		FROM messages
		WHERE to_number = $1 AND played = false
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, toNumber)

	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresMessageRepo) Archive(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET played = true WHERE id = $1
	`, id)
	return err
}

func (r *PostgresMessageRepo) ListArchived(ctx context.Context, toNumber string, limit, offset int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, from_number, to_number, recording_url, played, created_at, groups
		FROM messages
		WHERE to_number = $1 AND played = true
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, toNumber, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var m model.Message
	var groupsRaw []byte

	if err := row.Scan(
		&m.ID,
		&m.FromNumber,
		&m.ToNumber,
		&m.RecordingURL,
		&m.Played,
		&m.Timestamp,
		&groupsRaw,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(groupsRaw, &m.Groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups for message %s: %w", m.ID, err)
	}
	return &m, nil
}

func emptyIfNil(groups []string) []string {
	if groups == nil {
		return []string{}
	}
	return groups
}
