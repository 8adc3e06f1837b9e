package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	rows []Entry

	// InsertErr, when set, is returned by every Insert.
	InsertErr error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Insert(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InsertErr != nil {
		return r.InsertErr
	}
	r.rows = append(r.rows, cloneEntry(e))
	return nil
}

func (r *MemoryRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if providerCallID == "" {
		return Entry{}, ErrNotFound
	}
	for _, e := range r.rows {
		if e.ProviderCallID == providerCallID {
			return cloneEntry(e), nil
		}
	}
	return Entry{}, ErrNotFound
}

func (r *MemoryRepo) Complete(ctx context.Context, id string, c Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		e := &r.rows[i]
		if e.ID != id {
			continue
		}
		if err := checkCompletion(e.Status, c.Status); err != nil {
			return err
		}
		e.Status = c.Status
		if c.AgentID != "" {
			e.AgentID = c.AgentID
		}
		if c.CallID != "" {
			e.CallID = c.CallID
		}
		e.DurationSeconds = c.DurationSeconds
		if e.Metadata == nil {
			e.Metadata = Metadata{}
		}
		for k, v := range c.Metadata {
			e.Metadata[k] = v
		}
		e.EndOfCallReport = c.Report
		e.UpdatedAt = time.Now().UTC()
		return nil
	}
	return ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.UserID == "" {
		return nil, ErrInvalidArgument
	}
	out := make([]Entry, 0)
	for _, e := range r.rows {
		if e.UserID != f.UserID {
			continue
		}
		if f.CampaignID != "" && e.CampaignID != f.CampaignID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n := f.effectiveLimit(); n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// All returns every row in insertion order.
func (r *MemoryRepo) All() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.rows))
	for _, e := range r.rows {
		out = append(out, cloneEntry(e))
	}
	return out
}

func cloneEntry(e Entry) Entry {
	if e.Metadata != nil {
		m := make(Metadata, len(e.Metadata))
		for k, v := range e.Metadata {
			m[k] = v
		}
		e.Metadata = m
	}
	return e
}
