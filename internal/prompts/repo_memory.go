package prompts

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Prompt
}

func NewMemoryRepo(seed ...Prompt) *MemoryRepo {
	r := &MemoryRepo{rows: map[string]Prompt{}}
	for _, p := range seed {
		r.rows[p.ID] = p
	}
	return r
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok || p.UserID != userID {
		return Prompt{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string) ([]Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Prompt, 0)
	for _, p := range r.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Create(ctx context.Context, p Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = p
	return nil
}
