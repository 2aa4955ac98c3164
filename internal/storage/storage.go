// Package storage persists user accounts and projects. A project owns a
// single canvas document stored as raw JSON alongside a monotonically
// increasing version; the session hub saves through this package and the
// REST layer reads through it. Two implementations exist: Postgres for
// deployments and an in-memory store for tests and database-less runs.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("storage: not found")
	ErrDuplicate = errors.New("storage: duplicate key")
)

// User is a registered account. Password holds the bcrypt hash, never
// the plaintext.
type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

// Project is one playable-ad creative with its canvas document.
// SnapshotID identifies the latest saved revision of the document and
// rotates on every save.
type Project struct {
	ID         string
	OwnerID    string
	Name       string
	Document   json.RawMessage
	Version    int64
	SnapshotID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserStore persists accounts.
type UserStore interface {
	// CreateUser inserts a new account. A taken email returns
	// ErrDuplicate.
	CreateUser(ctx context.Context, u User) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
}

// ProjectStore persists projects and their canvas documents.
type ProjectStore interface {
	CreateProject(ctx context.Context, p Project) (Project, error)
	Project(ctx context.Context, id string) (Project, error)
	ProjectsByOwner(ctx context.Context, ownerID string) ([]Project, error)
	RenameProject(ctx context.Context, id, name string) (Project, error)
	// SaveDocument replaces the canvas document, bumps the version and
	// touches updated_at.
	SaveDocument(ctx context.Context, id string, doc json.RawMessage) (Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// Store is the full persistence surface the server wires together.
type Store interface {
	UserStore
	ProjectStore
}
