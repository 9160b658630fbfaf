package service

import (
	"errors"
	"sort"
	"time"

	"buggfix/internal/domain"
	"buggfix/internal/repository"

	"github.com/google/uuid"
)

var ErrWorkspaceNotFound = errors.New("workspace not found")

// Notifier receives a ping after a user's workspace changes, so other
// connected sessions of the same user can refetch.
type Notifier interface {
	NotifyWorkspaceUpdated(userID string)
}

type WorkspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	notifier      Notifier
}

func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository, notifier Notifier) *WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		notifier:      notifier,
	}
}

// List returns the user's workspaces. A user owns at most one; if older
// writes left several documents behind, the extras are merged away here
// (newest document wins, the rest are deleted best-effort).
func (s *WorkspaceService) List(ownerID string) ([]*domain.Workspace, error) {
	workspaces, err := s.workspaceRepo.GetByOwner(ownerID)
	if err != nil {
		return nil, err
	}

	if len(workspaces) <= 1 {
		return workspaces, nil
	}

	sort.Slice(workspaces, func(i, j int) bool {
		return workspaces[i].UpdatedAt.After(workspaces[j].UpdatedAt)
	})

	for _, stale := range workspaces[1:] {
		_ = s.workspaceRepo.Delete(stale.ID)
	}

	return workspaces[:1], nil
}

// Save replaces the caller's single workspace document with the given
// folder tree, creating it if it does not exist yet.
func (s *WorkspaceService) Save(ownerID string, req *domain.SaveWorkspaceRequest) (*domain.Workspace, error) {
	folders := req.Folders
	if folders == nil {
		folders = []domain.Folder{}
	}

	existing, err := s.List(ownerID)
	if err != nil {
		return nil, err
	}

	var workspace *domain.Workspace
	if len(existing) == 0 {
		workspace = &domain.Workspace{
			ID:        "workspace:" + uuid.New().String(),
			OwnerID:   ownerID,
			Folders:   folders,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.workspaceRepo.Create(workspace); err != nil {
			return nil, err
		}
	} else {
		workspace = existing[0]
		workspace.Folders = folders
		workspace.UpdatedAt = time.Now()
		if err := s.workspaceRepo.Update(workspace); err != nil {
			return nil, err
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyWorkspaceUpdated(ownerID)
	}

	return workspace, nil
}

// Delete removes the user's workspace document entirely.
func (s *WorkspaceService) Delete(ownerID string) error {
	workspaces, err := s.workspaceRepo.GetByOwner(ownerID)
	if err != nil {
		return err
	}
	if len(workspaces) == 0 {
		return ErrWorkspaceNotFound
	}

	for _, ws := range workspaces {
		if err := s.workspaceRepo.Delete(ws.ID); err != nil {
			return err
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyWorkspaceUpdated(ownerID)
	}

	return nil
}
