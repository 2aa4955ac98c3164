// Package project is the REST-facing service over stored creatives: CRUD,
// canvas document load/save with hydration repair, and procedural
// generation from an asset kit.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spinstudio/spinstudio/backend-go/internal/blob"
	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/kit"
	"github.com/spinstudio/spinstudio/backend-go/internal/layout"
	"github.com/spinstudio/spinstudio/backend-go/internal/storage"
	"github.com/spinstudio/spinstudio/backend-go/internal/typeid"
)

var (
	ErrNotFound        = errors.New("project not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidDocument = errors.New("invalid canvas document")
)

type Service struct {
	store storage.ProjectStore
	blobs blob.Store
}

func NewService(store storage.ProjectStore, blobs blob.Store) *Service {
	return &Service{store: store, blobs: blobs}
}

type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OwnerID    string `json:"ownerId"`
	Version    int64  `json:"version"`
	SnapshotID string `json:"snapshotId"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// GenerateSummary reports what a kit generation attached to the canvas.
type GenerateSummary struct {
	ArtboardIDs   []string `json:"artboardIds"`
	ArtboardCount int      `json:"artboardCount"`
	ElementCount  int      `json:"elementCount"`
	Version       int64    `json:"version"`
}

// Create seeds a new project with the default two-artboard canvas.
func (s *Service) Create(ctx context.Context, name, ownerID string) (*Project, error) {
	doc, err := json.Marshal(canvas.NewDefaultState())
	if err != nil {
		return nil, fmt.Errorf("marshal seed document: %w", err)
	}

	created, err := s.store.CreateProject(ctx, storage.Project{
		ID:       typeid.NewProjectID(),
		OwnerID:  ownerID,
		Name:     name,
		Document: doc,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return toAPI(created), nil
}

func (s *Service) Get(ctx context.Context, projectID, userID string) (*Project, error) {
	p, err := s.authorized(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	return toAPI(p), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	stored, err := s.store.ProjectsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]Project, len(stored))
	for i, p := range stored {
		projects[i] = *toAPI(p)
	}
	return projects, nil
}

func (s *Service) Rename(ctx context.Context, projectID, userID, name string) (*Project, error) {
	if _, err := s.authorized(ctx, projectID, userID); err != nil {
		return nil, err
	}
	p, err := s.store.RenameProject(ctx, projectID, name)
	if err != nil {
		return nil, fmt.Errorf("rename project: %w", err)
	}
	return toAPI(p), nil
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.authorized(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// CanvasState loads the canvas document, repairing structural damage. A
// repaired document is written back so the fix sticks; the read succeeds
// either way.
func (s *Service) CanvasState(ctx context.Context, projectID, userID string) (*canvas.State, error) {
	p, err := s.authorized(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	state, repaired := canvas.Hydrate(p.Document)
	if repaired {
		if doc, err := json.Marshal(state); err == nil {
			// Best effort: a failed write-back only means the repair
			// re-runs on the next load.
			s.store.SaveDocument(ctx, projectID, doc)
		}
	}
	return state, nil
}

// SaveCanvas replaces the canvas document. The payload must decode and
// carry at least one artboard; anything less is rejected rather than
// silently repaired, since the editor should never produce it.
func (s *Service) SaveCanvas(ctx context.Context, projectID, userID string, doc json.RawMessage) (*Project, error) {
	if _, err := s.authorized(ctx, projectID, userID); err != nil {
		return nil, err
	}

	var state canvas.State
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(state.Artboards) == 0 {
		return nil, fmt.Errorf("%w: no artboards", ErrInvalidDocument)
	}

	saved, err := s.store.SaveDocument(ctx, projectID, doc)
	if err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return toAPI(saved), nil
}

// Generate parses an asset kit, persists its assets, runs the layout
// generator for the requested sizes and attaches the result to the
// project's canvas. With replace set, generated artboards supplant the
// existing ones; otherwise they are appended.
func (s *Service) Generate(ctx context.Context, projectID, userID string, uploads []kit.Upload, sizes []layout.TargetSize, replace bool) (*GenerateSummary, error) {
	p, err := s.authorized(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	assets, err := kit.Parse(uploads)
	if err != nil {
		return nil, err
	}

	for _, a := range assets {
		if a.Kind != kit.KindImage {
			continue
		}
		err := s.blobs.Put(ctx, blob.Blob{
			ID:          a.ID,
			ProjectID:   projectID,
			Category:    "kit",
			ContentType: a.ContentType,
			Data:        a.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("store kit asset %s: %w", a.Name, err)
		}
	}

	summary := kit.Summarize(assets, func(a kit.Asset) string {
		return blob.Locator(a.ID)
	})

	result, err := layout.Generate(summary, sizes, nil)
	if err != nil {
		return nil, err
	}

	state, _ := canvas.Hydrate(p.Document)
	store := canvas.NewStore(state)
	if !store.AttachLayout(result.Artboards, result.Elements, replace) {
		return nil, errors.New("attach generated layout")
	}

	doc, err := json.Marshal(store.State())
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	saved, err := s.store.SaveDocument(ctx, projectID, doc)
	if err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	ids := make([]string, len(result.Artboards))
	for i, b := range result.Artboards {
		ids[i] = b.ID
	}
	return &GenerateSummary{
		ArtboardIDs:   ids,
		ArtboardCount: len(result.Artboards),
		ElementCount:  len(result.Elements),
		Version:       saved.Version,
	}, nil
}

func (s *Service) authorized(ctx context.Context, projectID, userID string) (storage.Project, error) {
	p, err := s.store.Project(ctx, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Project{}, ErrNotFound
		}
		return storage.Project{}, fmt.Errorf("get project: %w", err)
	}
	if p.OwnerID != userID {
		return storage.Project{}, ErrForbidden
	}
	return p, nil
}

func toAPI(p storage.Project) *Project {
	return &Project{
		ID:         p.ID,
		Name:       p.Name,
		OwnerID:    p.OwnerID,
		Version:    p.Version,
		SnapshotID: p.SnapshotID,
		CreatedAt:  p.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  p.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
