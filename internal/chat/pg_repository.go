package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanThread(row pgx.Row) (*Thread, error) {
	var t Thread

	err := row.Scan(
		&t.ID,
		&t.Participants,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}

	return &t, nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message

	err := row.Scan(
		&m.ID,
		&m.ThreadID,
		&m.SenderID,
		&m.Text,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	return &m, nil
}

// ResolveOrCreate relies on the unique participant_key index: the insert is
// ON CONFLICT DO NOTHING, then the winner (ours or a concurrent one) is read
// back. Exactly one thread per participant set survives any race.
func (r *PgRepository) ResolveOrCreate(ctx context.Context, ids []uuid.UUID) (*Thread, error) {
	key := ParticipantKey(ids)
	participants := dedupe(ids)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_threads (id, participant_key, participant_ids, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (participant_key) DO NOTHING
	`, uuid.New(), key, participants)
	if err != nil {
		return nil, fmt.Errorf("insert thread: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		SELECT id, participant_ids, created_at
		FROM chat_threads
		WHERE participant_key = $1
	`, key)
	return scanThread(row)
}

func (r *PgRepository) GetThread(ctx context.Context, id uuid.UUID) (*Thread, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, participant_ids, created_at
		FROM chat_threads
		WHERE id = $1
	`, id)
	return scanThread(row)
}

func (r *PgRepository) ListThreadsForUser(ctx context.Context, userID uuid.UUID) ([]Thread, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, participant_ids, created_at
		FROM chat_threads
		WHERE $1 = ANY(participant_ids)
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) AppendMessage(ctx context.Context, threadID, senderID uuid.UUID, text string) (*Message, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (id, thread_id, sender_id, text, created_at)
		SELECT $1, $2, $3, $4, now()
		WHERE EXISTS (SELECT 1 FROM chat_threads WHERE id = $2)
		RETURNING id, thread_id, sender_id, text, created_at
	`, uuid.New(), threadID, senderID, text)

	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *PgRepository) ListMessages(ctx context.Context, threadID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, thread_id, sender_id, text, created_at
		FROM chat_messages
		WHERE thread_id = $1
		ORDER BY created_at, id
	`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
