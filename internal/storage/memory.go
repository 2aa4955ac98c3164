package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spinstudio/spinstudio/backend-go/internal/typeid"
)

// Memory is an in-process Store used by tests and by server runs without
// a DATABASE_URL. Nothing survives a restart.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]User
	projects map[string]Project
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]User),
		projects: make(map[string]Project),
	}
}

func (m *Memory) CreateUser(ctx context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return User{}, ErrDuplicate
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return User{}, ErrDuplicate
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *Memory) UserByID(ctx context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) CreateProject(ctx context.Context, p Project) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; ok {
		return Project{}, ErrDuplicate
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	if p.Version == 0 {
		p.Version = 1
	}
	if p.SnapshotID == "" {
		p.SnapshotID = typeid.NewSnapshotID()
	}
	if len(p.Document) == 0 {
		p.Document = json.RawMessage(`{}`)
	}
	p.Document = cloneDoc(p.Document)
	m.projects[p.ID] = p
	return p, nil
}

func (m *Memory) Project(ctx context.Context, id string) (Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	p.Document = cloneDoc(p.Document)
	return p, nil
}

func (m *Memory) ProjectsByOwner(ctx context.Context, ownerID string) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Project
	for _, p := range m.projects {
		if p.OwnerID != ownerID {
			continue
		}
		p.Document = cloneDoc(p.Document)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) RenameProject(ctx context.Context, id, name string) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	p.Name = name
	p.UpdatedAt = time.Now().UTC()
	m.projects[id] = p
	p.Document = cloneDoc(p.Document)
	return p, nil
}

func (m *Memory) SaveDocument(ctx context.Context, id string, doc json.RawMessage) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	p.Document = cloneDoc(doc)
	p.Version++
	p.SnapshotID = typeid.NewSnapshotID()
	p.UpdatedAt = time.Now().UTC()
	m.projects[id] = p
	p.Document = cloneDoc(p.Document)
	return p, nil
}

func (m *Memory) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func cloneDoc(doc json.RawMessage) json.RawMessage {
	if doc == nil {
		return nil
	}
	out := make(json.RawMessage, len(doc))
	copy(out, doc)
	return out
}
