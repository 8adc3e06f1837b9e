package campaigns

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Campaign

	// CreateErr, when set, is returned by every Create.
	CreateErr error

	finalizeCalls int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: map[string]Campaign{}}
}

func (r *MemoryRepo) Create(ctx context.Context, c Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.rows[c.ID] = c
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string) ([]Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Campaign, 0)
	for _, c := range r.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Owner(ctx context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return "", ErrNotFound
	}
	return c.UserID, nil
}

func (r *MemoryRepo) Finalize(ctx context.Context, id string, status Status, successful, failed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalizeCalls++
	c, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	if c.Status != StatusInProgress {
		return ErrNotInProgress
	}
	c.Status = status
	c.SuccessfulCalls = successful
	c.FailedCalls = failed
	c.UpdatedAt = time.Now().UTC()
	r.rows[id] = c
	return nil
}

func (r *MemoryRepo) Increment(ctx context.Context, id string, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	if o == OutcomeSuccess {
		c.CompletedSuccess++
	} else {
		c.CompletedFailed++
	}
	r.rows[id] = c
	return nil
}

// FinalizeCalls reports how many times Finalize was invoked.
func (r *MemoryRepo) FinalizeCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalizeCalls
}

// Snapshot returns the stored campaign regardless of owner.
func (r *MemoryRepo) Snapshot(id string) (Campaign, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	return c, ok
}
