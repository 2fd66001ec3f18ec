package api

import (
	"sync"

	"github.com/asynkron/protoactor-go/actor"
)

// inflight tracks master actors that are still answering a request.
type inflight struct {
	mu   sync.Mutex
	pids map[string]*actor.PID
}

func newInflight() *inflight {
	return &inflight{
		pids: map[string]*actor.PID{},
	}
}

func (s *inflight) add(pid *actor.PID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pids[pid.GetId()] = pid
}

func (s *inflight) remove(pid *actor.PID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pids, pid.GetId())
}

func (s *inflight) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pids)
}

func (s *inflight) stopAll(ac *actor.RootContext) {
	s.mu.Lock()
	pids := make([]*actor.PID, 0, len(s.pids))
	for _, pid := range s.pids {
		pids = append(pids, pid)
	}
	s.pids = map[string]*actor.PID{}
	s.mu.Unlock()

	for _, pid := range pids {
		ac.Stop(pid)
	}
}
