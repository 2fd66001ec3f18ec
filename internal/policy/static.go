// Package policy serves per-user tool usage policies.
package policy

import (
	"context"
	"fmt"
	"sync"

	"go-intentflow/pkg/models"
)

// Static keeps policies in memory: per-user overrides on top of a default.
type Static struct {
	mu    sync.RWMutex
	def   models.UsagePolicy
	users map[string]models.UsagePolicy
}

func NewStatic(def models.UsagePolicy, users map[string]models.UsagePolicy) (*Static, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("default policy: %w", err)
	}
	s := &Static{def: def, users: make(map[string]models.UsagePolicy, len(users))}
	for id, p := range users {
		if err := s.Set(id, p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Static) Policy(_ context.Context, userID string) (models.UsagePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.users[userID]; ok {
		return p, nil
	}
	return s.def, nil
}

func (s *Static) Set(userID string, p models.UsagePolicy) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("policy for %s: %w", userID, err)
	}
	s.mu.Lock()
	s.users[userID] = p
	s.mu.Unlock()
	return nil
}
