package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var specialty *string

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&specialty,
		&u.Approved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	u.Specialty = specialty
	return &u, nil
}

func (s *PgStore) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, role, specialty, approved
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *PgStore) ListAdmins(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, role, specialty, approved
		FROM users
		WHERE role = 'admin'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PgStore) SetApproved(ctx context.Context, id uuid.UUID, approved bool) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET approved = $2
		WHERE id = $1
		RETURNING id, name, email, role, specialty, approved
	`, id, approved)
	return scanUser(row)
}
