package roles

import (
	"context"
	"fmt"
	"sync"
)

// memStore is an in-memory Store with call counters and error injection,
// used across the package tests.
type memStore struct {
	mu    sync.Mutex
	roles map[string]Role // keyed by id
	seq   int

	findCalls    int
	insertCalls  int
	replaceCalls int

	findErr    error
	insertErr  error
	replaceErr error

	lastReplaceID string
}

func newMemStore(seed ...Role) *memStore {
	s := &memStore{roles: make(map[string]Role)}
	for _, r := range seed {
		if r.ID == "" {
			s.seq++
			r.ID = fmt.Sprintf("id-%d", s.seq)
		}
		s.roles[r.ID] = r
	}
	return s
}

func (s *memStore) Find(_ context.Context, f Filter) ([]Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []Role
	for _, r := range s.roles {
		if f.ID != "" && r.ID != f.ID {
			continue
		}
		if f.ShortName != "" && r.ShortName != f.ShortName {
			continue
		}
		if f.SuperOnly && !r.IsSuper() {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, role Role) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return Role{}, s.insertErr
	}
	for _, existing := range s.roles {
		if existing.ShortName == role.ShortName {
			return Role{}, ErrConflict
		}
	}
	s.seq++
	role.ID = fmt.Sprintf("id-%d", s.seq)
	s.roles[role.ID] = role
	return role, nil
}

func (s *memStore) Replace(_ context.Context, id string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	s.lastReplaceID = id
	if s.replaceErr != nil {
		return s.replaceErr
	}
	if _, ok := s.roles[id]; !ok {
		return ErrRoleNotFound
	}
	role.ID = id
	s.roles[id] = role
	return nil
}

func (s *memStore) byShortName(name string) (Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.ShortName == name {
			return r, true
		}
	}
	return Role{}, false
}
