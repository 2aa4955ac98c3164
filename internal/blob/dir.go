package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirStore keeps each blob as a pair of files under one directory: the
// raw bytes and a small JSON sidecar with the metadata. Plain files keep
// local and single-node deployments dependency-free; swapping in object
// storage only means another Store implementation.
type DirStore struct {
	root string
}

// NewDirStore creates the backing directory if needed.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob dir: %w", err)
	}
	return &DirStore{root: root}, nil
}

// meta is the sidecar payload.
type meta struct {
	ProjectID   string `json:"projectId,omitempty"`
	Category    string `json:"category,omitempty"`
	ContentType string `json:"contentType"`
}

func (s *DirStore) Put(_ context.Context, b Blob) error {
	if err := checkID(b.ID); err != nil {
		return err
	}
	m, err := json.Marshal(meta{ProjectID: b.ProjectID, Category: b.Category, ContentType: b.ContentType})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.dataPath(b.ID), b.Data, 0o644); err != nil {
		return fmt.Errorf("writing blob %s: %w", b.ID, err)
	}
	if err := os.WriteFile(s.metaPath(b.ID), m, 0o644); err != nil {
		return fmt.Errorf("writing blob meta %s: %w", b.ID, err)
	}
	return nil
}

func (s *DirStore) Get(_ context.Context, id string) (Blob, error) {
	if err := checkID(id); err != nil {
		return Blob{}, err
	}
	data, err := os.ReadFile(s.dataPath(id))
	if os.IsNotExist(err) {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("reading blob %s: %w", id, err)
	}
	b := Blob{ID: id, Data: data, ContentType: "application/octet-stream"}
	if raw, err := os.ReadFile(s.metaPath(id)); err == nil {
		var m meta
		if json.Unmarshal(raw, &m) == nil {
			b.ProjectID, b.Category = m.ProjectID, m.Category
			if m.ContentType != "" {
				b.ContentType = m.ContentType
			}
		}
	}
	return b, nil
}

func (s *DirStore) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := os.Remove(s.dataPath(id)); os.IsNotExist(err) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	_ = os.Remove(s.metaPath(id))
	return nil
}

func (s *DirStore) dataPath(id string) string { return filepath.Join(s.root, id+".bin") }
func (s *DirStore) metaPath(id string) string { return filepath.Join(s.root, id+".json") }

// checkID rejects ids that could escape the root directory.
func checkID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || id != filepath.Base(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
