package services

import (
	"auction-engine/internal/domain"
	"sync"
)

// Registry is the append-only set of known bidder identities.
type Registry struct {
	mu         sync.RWMutex
	identities map[string]struct{}
	order      []string
}

func NewRegistry() *Registry {
	return &Registry{
		identities: make(map[string]struct{}),
	}
}

func (r *Registry) Register(identity string) domain.RegisterResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.identities[identity]; exists {
		return domain.AlreadyRegistered
	}
	r.identities[identity] = struct{}{}
	r.order = append(r.order, identity)
	return domain.Registered
}

func (r *Registry) Contains(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.identities[identity]
	return exists
}

// Identities returns every registered identity in registration order.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
