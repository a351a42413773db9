package chat

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Thread is a persisted, append-only conversation keyed by its participant
// set. The set is fixed at creation; a later change in who holds a role (for
// example a new admin) never retargets an existing thread.
type Thread struct {
	ID           uuid.UUID   `json:"id"`
	Participants []uuid.UUID `json:"participant_ids"`
	CreatedAt    time.Time   `json:"created_at"`
	Messages     []Message   `json:"messages,omitempty"`
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	ThreadID  uuid.UUID `json:"thread_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Thread) HasParticipant(id uuid.UUID) bool {
	for _, p := range t.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// ParticipantKey canonicalizes a participant set: deduplicated, sorted, and
// joined. Two sets are the same thread iff their keys are equal, which is
// what the uniqueness constraint enforces.
func ParticipantKey(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		parts = append(parts, id.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, ":")
}
