package models

import (
	"sort"
	"sync"
	"time"
)

// AdoptionStore tracks per-(person, capability) onboarding state. Each
// RecordEvent is a single check-then-write unit under the store lock, so two
// concurrent events for the same pair cannot both pass the same-state check.
type AdoptionStore struct {
	mu       sync.RWMutex
	people   map[string]Person
	statuses map[string]map[Capability]*AdoptionStatus
}

func NewAdoptionStore() *AdoptionStore {
	return &AdoptionStore{
		people:   make(map[string]Person),
		statuses: make(map[string]map[Capability]*AdoptionStatus),
	}
}

// PutPerson registers or updates a person. Pairs start at not_started
// implicitly; no status rows are materialized until the first event.
func (s *AdoptionStore) PutPerson(p Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people[p.ID] = p
}

func (s *AdoptionStore) Person(id string) (Person, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[id]
	return p, ok
}

func (s *AdoptionStore) People() []Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Person, 0, len(s.people))
	for _, p := range s.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecordEvent advances one (person, capability) pair by exactly one step.
// Skipping ahead, moving backward, or repeating a state is rejected.
func (s *AdoptionStore) RecordEvent(personID string, cap Capability, newState AdoptionState) (AdoptionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newRank, ok := newState.Rank()
	if !ok {
		return AdoptionStatus{}, ErrInvalidTransition
	}

	cur := AdoptionNotStarted
	if caps, ok := s.statuses[personID]; ok {
		if st, ok := caps[cap]; ok {
			cur = st.State
		}
	}
	curRank, _ := cur.Rank()
	if newRank != curRank+1 {
		return AdoptionStatus{}, ErrInvalidTransition
	}

	status := &AdoptionStatus{
		PersonID:         personID,
		Capability:       cap,
		State:            newState,
		LastTransitionAt: time.Now().UTC(),
	}
	if s.statuses[personID] == nil {
		s.statuses[personID] = make(map[Capability]*AdoptionStatus)
	}
	s.statuses[personID][cap] = status
	return *status, nil
}

func (s *AdoptionStore) Status(personID string, cap Capability) AdoptionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if caps, ok := s.statuses[personID]; ok {
		if st, ok := caps[cap]; ok {
			return st.State
		}
	}
	return AdoptionNotStarted
}

// PendingFor lists people not yet at configured for the capability, in
// stable id order.
func (s *AdoptionStore) PendingFor(cap Capability) []Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Person, 0, len(s.people))
	for id, p := range s.people {
		state := AdoptionNotStarted
		if caps, ok := s.statuses[id]; ok {
			if st, ok := caps[cap]; ok {
				state = st.State
			}
		}
		if state != AdoptionConfigured {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Matrix cross-tabulates every person against every capability as one
// consistent snapshot taken under a single read lock.
func (s *AdoptionStore) Matrix() map[string]map[Capability]AdoptionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[Capability]AdoptionState, len(s.people))
	for id := range s.people {
		row := make(map[Capability]AdoptionState, len(AllCapabilities))
		for _, cap := range AllCapabilities {
			row[cap] = AdoptionNotStarted
			if caps, ok := s.statuses[id]; ok {
				if st, ok := caps[cap]; ok {
					row[cap] = st.State
				}
			}
		}
		out[id] = row
	}
	return out
}

// GetData returns a deep copy for persistence.
func (s *AdoptionStore) GetData() ([]Person, map[string]map[Capability]*AdoptionStatus) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	people := make([]Person, 0, len(s.people))
	for _, p := range s.people {
		people = append(people, p)
	}
	statuses := make(map[string]map[Capability]*AdoptionStatus, len(s.statuses))
	for id, caps := range s.statuses {
		row := make(map[Capability]*AdoptionStatus, len(caps))
		for cap, st := range caps {
			cp := *st
			row[cap] = &cp
		}
		statuses[id] = row
	}
	return people, statuses
}

// PutData replaces all adoption state.
func (s *AdoptionStore) PutData(people []Person, statuses map[string]map[Capability]*AdoptionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people = make(map[string]Person, len(people))
	for _, p := range people {
		s.people[p.ID] = p
	}
	s.statuses = make(map[string]map[Capability]*AdoptionStatus, len(statuses))
	for id, caps := range statuses {
		if caps == nil {
			continue
		}
		row := make(map[Capability]*AdoptionStatus, len(caps))
		for cap, st := range caps {
			if st == nil {
				continue
			}
			cp := *st
			row[cap] = &cp
		}
		s.statuses[id] = row
	}
}
