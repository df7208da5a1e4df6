package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live sessions by id. It provides the session-level mutual
// exclusion boundary: callers always reach a Runtime through here, and each
// Runtime serializes its own turns.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Runtime
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Runtime{}}
}

// Create builds a new session with a generated id, runs session start and
// returns the runtime with its initial turn result.
func (r *Registry) Create(opts Options) (*Runtime, *TurnResult, error) {
	return r.CreateWithID(uuid.NewString(), opts)
}

// CreateWithID is Create with a caller-chosen session id, used by replay
// tooling where the id participates in seed derivation.
func (r *Registry) CreateWithID(id string, opts Options) (*Runtime, *TurnResult, error) {
	rt, err := New(id, opts)
	if err != nil {
		return nil, nil, err
	}
	result := rt.Start()

	r.mu.Lock()
	r.sessions[id] = rt
	r.mu.Unlock()

	return rt, result, nil
}

func (r *Registry) Get(id string) (*Runtime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return rt, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
