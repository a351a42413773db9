package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository backs demo mode and tests. The byKey map plays the role
// of the participant_key uniqueness constraint.
type MemoryRepository struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*Thread
	byKey    map[string]uuid.UUID
	messages map[uuid.UUID][]Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[uuid.UUID]*Thread),
		byKey:    make(map[string]uuid.UUID),
		messages: make(map[uuid.UUID][]Message),
	}
}

func (r *MemoryRepository) ResolveOrCreate(_ context.Context, ids []uuid.UUID) (*Thread, error) {
	key := ParticipantKey(ids)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[key]; ok {
		cp := *r.byID[id]
		return &cp, nil
	}

	t := &Thread{
		ID:           uuid.New(),
		Participants: dedupe(ids),
		CreatedAt:    time.Now().UTC(),
	}
	r.byID[t.ID] = t
	r.byKey[key] = t.ID

	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) GetThread(_ context.Context, id uuid.UUID) (*Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return nil, ErrThreadNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) ListThreadsForUser(_ context.Context, userID uuid.UUID) ([]Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Thread
	for _, t := range r.byID {
		if t.HasParticipant(userID) {
			result = append(result, *t)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *MemoryRepository) AppendMessage(_ context.Context, threadID, senderID uuid.UUID, text string) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[threadID]; !ok {
		return nil, ErrThreadNotFound
	}

	m := Message{
		ID:        uuid.New(),
		ThreadID:  threadID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	r.messages[threadID] = append(r.messages[threadID], m)
	return &m, nil
}

func (r *MemoryRepository) ListMessages(_ context.Context, threadID uuid.UUID) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.messages[threadID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
