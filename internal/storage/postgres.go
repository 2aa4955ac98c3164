package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spinstudio/spinstudio/backend-go/internal/typeid"
)

// Postgres backs the store with a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// Connect opens a pooled connection and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the tables on first boot. Statements are
// idempotent so repeated starts are safe.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	password     TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	document    JSONB NOT NULL DEFAULT '{}',
	version     BIGINT NOT NULL DEFAULT 1,
	snapshot_id TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS projects_owner_idx ON projects(owner_id);
`
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, u User) (User, error) {
	const q = `
	INSERT INTO users (id, email, password, display_name)
	VALUES ($1, $2, $3, $4)
	RETURNING id, email, password, display_name, created_at
	`
	row := p.pool.QueryRow(ctx, q, u.ID, u.Email, u.Password, u.DisplayName)
	out, err := scanUser(row)
	if err != nil {
		if isDuplicateKey(err) {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return out, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (User, error) {
	const q = `
	SELECT id, email, password, display_name, created_at
	FROM users WHERE email = $1
	`
	out, err := scanUser(p.pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return out, nil
}

func (p *Postgres) UserByID(ctx context.Context, id string) (User, error) {
	const q = `
	SELECT id, email, password, display_name, created_at
	FROM users WHERE id = $1
	`
	out, err := scanUser(p.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return out, nil
}

func (p *Postgres) CreateProject(ctx context.Context, proj Project) (Project, error) {
	const q = `
	INSERT INTO projects (id, owner_id, name, document, snapshot_id)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, owner_id, name, document, version, snapshot_id, created_at, updated_at
	`
	doc := proj.Document
	if len(doc) == 0 {
		doc = json.RawMessage(`{}`)
	}
	row := p.pool.QueryRow(ctx, q, proj.ID, proj.OwnerID, proj.Name, doc, typeid.NewSnapshotID())
	out, err := scanProject(row)
	if err != nil {
		if isDuplicateKey(err) {
			return Project{}, ErrDuplicate
		}
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	return out, nil
}

func (p *Postgres) Project(ctx context.Context, id string) (Project, error) {
	const q = `
	SELECT id, owner_id, name, document, version, snapshot_id, created_at, updated_at
	FROM projects WHERE id = $1
	`
	out, err := scanProject(p.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	return out, nil
}

func (p *Postgres) ProjectsByOwner(ctx context.Context, ownerID string) ([]Project, error) {
	const q = `
	SELECT id, owner_id, name, document, version, snapshot_id, created_at, updated_at
	FROM projects WHERE owner_id = $1
	ORDER BY updated_at DESC
	`
	rows, err := p.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, proj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (p *Postgres) RenameProject(ctx context.Context, id, name string) (Project, error) {
	const q = `
	UPDATE projects SET name = $2, updated_at = now()
	WHERE id = $1
	RETURNING id, owner_id, name, document, version, snapshot_id, created_at, updated_at
	`
	out, err := scanProject(p.pool.QueryRow(ctx, q, id, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("rename project: %w", err)
	}
	return out, nil
}

func (p *Postgres) SaveDocument(ctx context.Context, id string, doc json.RawMessage) (Project, error) {
	const q = `
	UPDATE projects SET document = $2, version = version + 1, snapshot_id = $3, updated_at = now()
	WHERE id = $1
	RETURNING id, owner_id, name, document, version, snapshot_id, created_at, updated_at
	`
	out, err := scanProject(p.pool.QueryRow(ctx, q, id, doc, typeid.NewSnapshotID()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("save document: %w", err)
	}
	return out, nil
}

func (p *Postgres) DeleteProject(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Document, &p.Version, &p.SnapshotID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
