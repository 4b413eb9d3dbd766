package memory

import (
	"context"
	"sort"
	"sync"
)

// OperatorRepo implements ports.OperatorRepository in memory.
type OperatorRepo struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewOperatorRepo creates a repository holding ids.
func NewOperatorRepo(ids ...string) *OperatorRepo {
	r := &OperatorRepo{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
	return r
}

func (r *OperatorRepo) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (r *OperatorRepo) Add(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return false, nil
	}
	r.ids[id] = struct{}{}
	return true, nil
}

func (r *OperatorRepo) Remove(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; !ok {
		return false, nil
	}
	delete(r.ids, id)
	return true, nil
}
