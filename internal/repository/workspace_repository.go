package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buggfix/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

var ErrWorkspaceNotFound = errors.New("workspace not found")

type WorkspaceRepository interface {
	Create(workspace *domain.Workspace) error
	GetByOwner(ownerID string) ([]*domain.Workspace, error)
	Update(workspace *domain.Workspace) error
	Delete(id string) error
}

type CouchDBWorkspaceRepository struct {
	db *kivik.DB
}

type workspaceDoc struct {
	ID        string          `json:"_id"`
	Rev       string          `json:"_rev,omitempty"`
	DocType   string          `json:"doc_type"`
	OwnerID   string          `json:"owner_id"`
	Folders   []domain.Folder `json:"folders"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

func NewWorkspaceRepository(client *kivik.Client, dbName string) *CouchDBWorkspaceRepository {
	return &CouchDBWorkspaceRepository{
		db: client.DB(dbName),
	}
}

func (r *CouchDBWorkspaceRepository) Create(workspace *domain.Workspace) error {
	doc := toDoc(workspace, "")

	_, err := r.db.Put(context.Background(), doc.ID, doc)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	return nil
}

func (r *CouchDBWorkspaceRepository) GetByOwner(ownerID string) ([]*domain.Workspace, error) {
	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": "workspace",
			"owner_id": ownerID,
		},
	}

	rows := r.db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*domain.Workspace
	for rows.Next() {
		var doc workspaceDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}

		ws, err := docToWorkspace(&doc)
		if err != nil {
			return nil, err
		}
		workspaces = append(workspaces, ws)
	}

	return workspaces, nil
}

func (r *CouchDBWorkspaceRepository) Update(workspace *domain.Workspace) error {
	row := r.db.Get(context.Background(), workspace.ID)
	var existing workspaceDoc
	if err := row.ScanDoc(&existing); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return ErrWorkspaceNotFound
		}
		return fmt.Errorf("failed to get workspace for update: %w", err)
	}

	doc := toDoc(workspace, existing.Rev)

	if _, err := r.db.Put(context.Background(), doc.ID, doc); err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}

	return nil
}

func (r *CouchDBWorkspaceRepository) Delete(id string) error {
	row := r.db.Get(context.Background(), id)
	var doc workspaceDoc
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return ErrWorkspaceNotFound
		}
		return fmt.Errorf("failed to get workspace for delete: %w", err)
	}

	if _, err := r.db.Delete(context.Background(), id, doc.Rev); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	return nil
}

func toDoc(ws *domain.Workspace, rev string) workspaceDoc {
	return workspaceDoc{
		ID:        ws.ID,
		Rev:       rev,
		DocType:   "workspace",
		OwnerID:   ws.OwnerID,
		Folders:   ws.Folders,
		CreatedAt: ws.CreatedAt.Format(time.RFC3339),
		UpdatedAt: ws.UpdatedAt.Format(time.RFC3339),
	}
}

func docToWorkspace(doc *workspaceDoc) (*domain.Workspace, error) {
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	updatedAt, err := parseTime(doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &domain.Workspace{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Folders:   doc.Folders,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
