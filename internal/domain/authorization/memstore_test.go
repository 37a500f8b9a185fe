package authorization

import (
	"context"
	"sync"
)

// memStore is an in-memory Store for tests. RecordVisit serializes on a
// single mutex, matching the per-row locking the Postgres store provides.
type memStore struct {
	mu     sync.Mutex
	auths  map[string]*Authorization
	visits map[string][]*VisitUsage
	tasks  map[string]*Task
	events []*Event

	failTaskCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		auths:  make(map[string]*Authorization),
		visits: make(map[string][]*VisitUsage),
		tasks:  make(map[string]*Task),
	}
}

func (m *memStore) GetAuthorization(_ context.Context, id string) (*Authorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	auth, ok := m.auths[id]
	if !ok {
		return nil, &NotFoundError{Kind: "authorization", ID: id}
	}
	cp := *auth
	return &cp, nil
}

func (m *memStore) CreateAuthorization(_ context.Context, auth *Authorization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *auth
	m.auths[auth.ID] = &cp
	return nil
}

func (m *memStore) UpdateAuthorization(_ context.Context, auth *Authorization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.auths[auth.ID]; !ok {
		return &NotFoundError{Kind: "authorization", ID: auth.ID}
	}
	cp := *auth
	m.auths[auth.ID] = &cp
	return nil
}

func (m *memStore) RecordVisit(_ context.Context, authorizationID string, fn RecordFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.auths[authorizationID]
	if !ok {
		_, _, err := fn(nil)
		return err
	}

	working := *stored
	visit, events, err := fn(&working)
	if err != nil {
		return err
	}

	m.auths[authorizationID] = &working
	m.visits[authorizationID] = append(m.visits[authorizationID], visit)
	m.events = append(m.events, events...)
	return nil
}

func (m *memStore) ListVisits(_ context.Context, authorizationID string) ([]*VisitUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*VisitUsage(nil), m.visits[authorizationID]...), nil
}

func (m *memStore) CreateTask(_ context.Context, task *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTaskCreate {
		return &NotFoundError{Kind: "task store", ID: task.ID}
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memStore) UpdateTask(_ context.Context, task *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return &NotFoundError{Kind: "task", ID: task.ID}
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memStore) GetTask(_ context.Context, id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, &NotFoundError{Kind: "task", ID: id}
	}
	cp := *task
	return &cp, nil
}

func (m *memStore) ListTasks(_ context.Context, authorizationID string) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tasks []*Task
	for _, t := range m.tasks {
		if t.AuthorizationID == authorizationID {
			cp := *t
			tasks = append(tasks, &cp)
		}
	}
	return tasks, nil
}

func (m *memStore) AppendEvents(_ context.Context, events []*Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *memStore) eventsOfType(eventType EventType) []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Event
	for _, e := range m.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
