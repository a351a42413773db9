package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrThreadNotFound  = errors.New("thread not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Repository contains all chat store interactions needed by the service.
type Repository interface {
	// ResolveOrCreate finds the thread whose participant set matches ids, or
	// creates it. Implementations must be idempotent under concurrent calls
	// for the same set: exactly one thread per participant key ever exists.
	ResolveOrCreate(ctx context.Context, ids []uuid.UUID) (*Thread, error)

	GetThread(ctx context.Context, id uuid.UUID) (*Thread, error)
	ListThreadsForUser(ctx context.Context, userID uuid.UUID) ([]Thread, error)

	// AppendMessage appends to the thread's ordered message sequence.
	AppendMessage(ctx context.Context, threadID, senderID uuid.UUID, text string) (*Message, error)
	ListMessages(ctx context.Context, threadID uuid.UUID) ([]Message, error)
}
