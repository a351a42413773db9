// Package catalog is the narrow read interface to the therapy catalog. The
// scheduling core stores only therapy references and uses the duration to
// derive a default end time for bookings.
package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTherapyNotFound = errors.New("therapy not found")

type Therapy struct {
	ID       uuid.UUID
	Name     string
	Duration time.Duration
}

type Catalog interface {
	GetTherapy(ctx context.Context, id uuid.UUID) (*Therapy, error)
}

type PgCatalog struct {
	pool *pgxpool.Pool
}

func NewPgCatalog(pool *pgxpool.Pool) *PgCatalog {
	return &PgCatalog{pool: pool}
}

func (c *PgCatalog) GetTherapy(ctx context.Context, id uuid.UUID) (*Therapy, error) {
	var t Therapy
	var minutes int

	err := c.pool.QueryRow(ctx, `
		SELECT id, name, duration_minutes
		FROM therapies
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &minutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTherapyNotFound
		}
		return nil, err
	}

	t.Duration = time.Duration(minutes) * time.Minute
	return &t, nil
}

// MemoryCatalog backs demo mode and tests.
type MemoryCatalog struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Therapy
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{items: make(map[uuid.UUID]Therapy)}
}

func (c *MemoryCatalog) Put(t Therapy) {
	c.mu.Lock()
	c.items[t.ID] = t
	c.mu.Unlock()
}

func (c *MemoryCatalog) GetTherapy(_ context.Context, id uuid.UUID) (*Therapy, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.items[id]
	if !ok {
		return nil, ErrTherapyNotFound
	}
	return &t, nil
}
