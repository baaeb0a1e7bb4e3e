package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jeana-hines/group-voice-messaging/internal/model"
)

type PostgresUserRepo struct {
	db *sql.DB
}

func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (r *PostgresUserRepo) GetByPhone(ctx context.Context, phoneNumber string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT phone_number, name, groups
		FROM users
		WHERE phone_number = $1
	`, phoneNumber)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresUserRepo) ListContacts(ctx context.Context, phoneNumber string, groups []string) ([]model.User, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT phone_number, name, groups
		FROM users u
		WHERE phone_number <> $1
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements_text(u.groups) g
			WHERE g IN (SELECT jsonb_array_elements_text($2::jsonb))
		  )
		ORDER BY name ASC, phone_number ASC
	`, phoneNumber, groupsJSON)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsers(rows)
}

func (r *PostgresUserRepo) ListGroupMembers(ctx context.Context, group string) ([]model.User, error) {
	memberOf, err := json.Marshal([]string{group})
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT phone_number, name, groups
		FROM users
		WHERE groups @> $1::jsonb
		ORDER BY name ASC, phone_number ASC
	`, memberOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsers(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var groupsRaw []byte

	if err := row.Scan(&u.PhoneNumber, &u.Name, &groupsRaw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(groupsRaw, &u.Groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups for %s: %w", u.PhoneNumber, err)
	}
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]model.User, error) {
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
