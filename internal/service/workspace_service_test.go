package service

import (
	"errors"
	"testing"
	"time"

	"buggfix/internal/domain"
)

type mockWorkspaceRepository struct {
	workspaces map[string]*domain.Workspace
	getErr     error
}

func newMockWorkspaceRepository() *mockWorkspaceRepository {
	return &mockWorkspaceRepository{
		workspaces: make(map[string]*domain.Workspace),
	}
}

func (m *mockWorkspaceRepository) Create(workspace *domain.Workspace) error {
	m.workspaces[workspace.ID] = workspace
	return nil
}

func (m *mockWorkspaceRepository) GetByOwner(ownerID string) ([]*domain.Workspace, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*domain.Workspace
	for _, ws := range m.workspaces {
		if ws.OwnerID == ownerID {
			result = append(result, ws)
		}
	}
	return result, nil
}

func (m *mockWorkspaceRepository) Update(workspace *domain.Workspace) error {
	if _, ok := m.workspaces[workspace.ID]; !ok {
		return errors.New("workspace not found")
	}
	m.workspaces[workspace.ID] = workspace
	return nil
}

func (m *mockWorkspaceRepository) Delete(id string) error {
	if _, ok := m.workspaces[id]; !ok {
		return errors.New("workspace not found")
	}
	delete(m.workspaces, id)
	return nil
}

type mockNotifier struct {
	notified []string
}

func (m *mockNotifier) NotifyWorkspaceUpdated(userID string) {
	m.notified = append(m.notified, userID)
}

func TestWorkspaceService_SaveCreatesThenUpdates(t *testing.T) {
	repo := newMockWorkspaceRepository()
	notifier := &mockNotifier{}
	service := NewWorkspaceService(repo, notifier)

	first, err := service.Save("user-1", &domain.SaveWorkspaceRequest{
		Folders: []domain.Folder{{ID: "f1", Title: "Algorithms"}},
	})
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if len(repo.workspaces) != 1 {
		t.Fatalf("Save() created %d documents, want 1", len(repo.workspaces))
	}

	second, err := service.Save("user-1", &domain.SaveWorkspaceRequest{
		Folders: []domain.Folder{{ID: "f1", Title: "Renamed"}},
	})
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Save() created a second document, want update of %s", first.ID)
	}
	if len(repo.workspaces) != 1 {
		t.Errorf("Save() left %d documents, want 1", len(repo.workspaces))
	}
	if second.Folders[0].Title != "Renamed" {
		t.Errorf("Save() folders not updated, got %q", second.Folders[0].Title)
	}
	if len(notifier.notified) != 2 {
		t.Errorf("Save() sent %d notifications, want 2", len(notifier.notified))
	}
}

func TestWorkspaceService_SaveNilFolders(t *testing.T) {
	repo := newMockWorkspaceRepository()
	service := NewWorkspaceService(repo, nil)

	workspace, err := service.Save("user-1", &domain.SaveWorkspaceRequest{})
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if workspace.Folders == nil {
		t.Error("Save() stored nil folders, want empty slice")
	}
}

func TestWorkspaceService_ListCollapsesDuplicates(t *testing.T) {
	repo := newMockWorkspaceRepository()
	service := NewWorkspaceService(repo, nil)

	repo.Create(&domain.Workspace{
		ID:        "workspace:old",
		OwnerID:   "user-1",
		Folders:   []domain.Folder{{ID: "f-old", Title: "Stale"}},
		UpdatedAt: time.Now().Add(-time.Hour),
	})
	repo.Create(&domain.Workspace{
		ID:        "workspace:new",
		OwnerID:   "user-1",
		Folders:   []domain.Folder{{ID: "f-new", Title: "Current"}},
		UpdatedAt: time.Now(),
	})

	workspaces, err := service.List("user-1")
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(workspaces) != 1 {
		t.Fatalf("List() returned %d workspaces, want 1", len(workspaces))
	}
	if workspaces[0].ID != "workspace:new" {
		t.Errorf("List() kept %s, want the newest document", workspaces[0].ID)
	}
	if len(repo.workspaces) != 1 {
		t.Errorf("List() left %d documents behind, want 1", len(repo.workspaces))
	}
}

func TestWorkspaceService_ListEmpty(t *testing.T) {
	repo := newMockWorkspaceRepository()
	service := NewWorkspaceService(repo, nil)

	workspaces, err := service.List("user-1")
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(workspaces) != 0 {
		t.Errorf("List() returned %d workspaces, want 0", len(workspaces))
	}
}

func TestWorkspaceService_ListRepositoryError(t *testing.T) {
	repo := newMockWorkspaceRepository()
	repo.getErr = errors.New("database unavailable")
	service := NewWorkspaceService(repo, nil)

	if _, err := service.List("user-1"); err == nil {
		t.Error("List() expected error, got nil")
	}
}

func TestWorkspaceService_Delete(t *testing.T) {
	repo := newMockWorkspaceRepository()
	notifier := &mockNotifier{}
	service := NewWorkspaceService(repo, notifier)

	repo.Create(&domain.Workspace{ID: "workspace:1", OwnerID: "user-1"})

	if err := service.Delete("user-1"); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if len(repo.workspaces) != 0 {
		t.Errorf("Delete() left %d documents", len(repo.workspaces))
	}
	if len(notifier.notified) != 1 {
		t.Errorf("Delete() sent %d notifications, want 1", len(notifier.notified))
	}
}

func TestWorkspaceService_DeleteMissing(t *testing.T) {
	repo := newMockWorkspaceRepository()
	service := NewWorkspaceService(repo, nil)

	if err := service.Delete("user-1"); err != ErrWorkspaceNotFound {
		t.Errorf("Delete() error = %v, want ErrWorkspaceNotFound", err)
	}
}
