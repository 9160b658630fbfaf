package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"buggfix/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLocal struct {
	data    map[string]string
	failSet bool
	failGet bool
}

func newMemLocal() *memLocal {
	return &memLocal{data: make(map[string]string)}
}

func (m *memLocal) Get(key string) (string, bool, error) {
	if m.failGet {
		return "", false, errors.New("storage unavailable")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memLocal) Set(key, value string) error {
	if m.failSet {
		return errors.New("storage quota exceeded")
	}
	m.data[key] = value
	return nil
}

func (m *memLocal) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *memLocal) folders(t *testing.T) []domain.Folder {
	t.Helper()
	raw, ok := m.data[LocalKey]
	if !ok {
		return nil
	}
	var folders []domain.Folder
	require.NoError(t, json.Unmarshal([]byte(raw), &folders))
	return folders
}

type fakeRemote struct {
	workspaces []domain.Workspace
	fetchErr   error
	pushErr    error
	pushes     [][]domain.Folder
}

func (f *fakeRemote) FetchWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.workspaces, nil
}

func (f *fakeRemote) PushWorkspaces(ctx context.Context, folders []domain.Folder) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes = append(f.pushes, folders)
	return nil
}

type fakeAuth struct {
	authed bool
	name   string
}

func (f *fakeAuth) Authenticated() bool { return f.authed }
func (f *fakeAuth) DisplayName() string { return f.name }

func newTestStore(local *memLocal, remote *fakeRemote, auth *fakeAuth) *Store {
	s := New(local, remote, auth, nil)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func TestCreateWorkspaceGuest(t *testing.T) {
	local := newMemLocal()
	s := newTestStore(local, &fakeRemote{}, &fakeAuth{})

	folder, err := s.CreateWorkspace(context.Background(), "F1", "a.cpp", domain.LanguageCpp)
	require.NoError(t, err)

	persisted := local.folders(t)
	require.Len(t, persisted, 1)
	assert.Equal(t, "F1", persisted[0].Title)
	require.Len(t, persisted[0].Files, 1)
	assert.Equal(t, "a.cpp", persisted[0].Files[0].Title)
	assert.Equal(t, domain.LanguageCpp, persisted[0].Files[0].Language)
	assert.Equal(t, domain.DefaultCode(domain.LanguageCpp), persisted[0].Files[0].Code)

	assert.Equal(t, folder.ID, persisted[0].ID)

	msg := s.Message()
	require.NotNil(t, msg)
	assert.Equal(t, domain.SyncInfo, msg.Kind)
}

func TestCreateWorkspaceValidation(t *testing.T) {
	s := newTestStore(newMemLocal(), &fakeRemote{}, &fakeAuth{})

	_, err := s.CreateWorkspace(context.Background(), "", "a.cpp", domain.LanguageCpp)
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = s.CreateWorkspace(context.Background(), "F1", "a.xyz", domain.Language("cobol"))
	assert.Error(t, err)
}

func TestMutatorOptimismOnPushFailure(t *testing.T) {
	local := newMemLocal()
	remote := &fakeRemote{pushErr: errors.New("http 500")}
	s := newTestStore(local, remote, &fakeAuth{authed: true, name: "Ada"})

	folder, err := s.CreateWorkspace(context.Background(), "F1", "a.cpp", domain.LanguageCpp)
	require.NoError(t, err)
	fileID := folder.Files[0].ID

	err = s.SaveCode(context.Background(), folder.ID, fileID, "int main() {}")
	require.NoError(t, err)

	// In-memory and local state reflect the edit even though the push failed.
	code, ok := s.Code(folder.ID, fileID)
	require.True(t, ok)
	assert.Equal(t, "int main() {}", code)
	assert.Equal(t, "int main() {}", local.folders(t)[0].Files[0].Code)

	msg := s.Message()
	require.NotNil(t, msg)
	assert.Equal(t, domain.SyncWarning, msg.Kind)
	assert.True(t, s.SyncDegraded())
}

func TestMutatorSyncSuccess(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(newMemLocal(), remote, &fakeAuth{authed: true, name: "Ada"})

	_, err := s.CreateWorkspace(context.Background(), "F1", "a.py", domain.LanguagePython)
	require.NoError(t, err)

	require.Len(t, remote.pushes, 1)
	msg := s.Message()
	require.NotNil(t, msg)
	assert.Equal(t, domain.SyncSuccess, msg.Kind)
	assert.False(t, s.SyncDegraded())
}

func TestCopyOnWriteSnapshots(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(newMemLocal(), remote, &fakeAuth{authed: true})

	folder, err := s.CreateWorkspace(context.Background(), "F1", "a.js", domain.LanguageJavascript)
	require.NoError(t, err)
	fileID := folder.Files[0].ID

	require.NoError(t, s.SaveCode(context.Background(), folder.ID, fileID, "v1"))
	first := remote.pushes[len(remote.pushes)-1]
	assert.Equal(t, "v1", first[0].Files[0].Code)

	// A later mutation must not reach back into the earlier snapshot.
	require.NoError(t, s.SaveCode(context.Background(), folder.ID, fileID, "v2"))
	assert.Equal(t, "v1", first[0].Files[0].Code)

	// Same for snapshots handed to readers.
	snapshot := s.Folders()
	require.NoError(t, s.RenameFolder(context.Background(), folder.ID, "renamed"))
	assert.Equal(t, "F1", snapshot[0].Title)
}

func TestLastWriteWinsAtRemote(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(newMemLocal(), remote, &fakeAuth{authed: true})

	folder, err := s.CreateWorkspace(context.Background(), "F1", "a.js", domain.LanguageJavascript)
	require.NoError(t, err)
	fileID := folder.Files[0].ID

	require.NoError(t, s.SaveCode(context.Background(), folder.ID, fileID, "first"))
	require.NoError(t, s.SaveCode(context.Background(), folder.ID, fileID, "second"))

	// Whole-snapshot pushes: whichever push lands last fully determines
	// the remote tree. There is no merging.
	last := remote.pushes[len(remote.pushes)-1]
	assert.Equal(t, "second", last[0].Files[0].Code)
}

func TestLocalWriteFailureIsFatalForOperation(t *testing.T) {
	local := newMemLocal()
	local.failSet = true
	s := newTestStore(local, &fakeRemote{}, &fakeAuth{})

	_, err := s.CreateWorkspace(context.Background(), "F1", "a.cpp", domain.LanguageCpp)
	require.Error(t, err)

	msg := s.Message()
	require.NotNil(t, msg)
	assert.Equal(t, domain.SyncError, msg.Kind)
}

func TestLoadGuestFromLocal(t *testing.T) {
	local := newMemLocal()
	raw, _ := json.Marshal([]domain.Folder{{ID: "f1", Title: "Saved", Files: []domain.File{}}})
	local.data[LocalKey] = string(raw)

	s := newTestStore(local, &fakeRemote{}, &fakeAuth{})
	require.NoError(t, s.Load(context.Background()))

	folders := s.Folders()
	require.Len(t, folders, 1)
	assert.Equal(t, "Saved", folders[0].Title)
	assert.Nil(t, s.Message())
}

func TestLoadAdoptsRemoteAndMirrors(t *testing.T) {
	local := newMemLocal()
	remote := &fakeRemote{
		workspaces: []domain.Workspace{{
			ID:      "workspace:1",
			Folders: []domain.Folder{{ID: "f1", Title: "Cloud", Files: []domain.File{}}},
		}},
	}
	s := newTestStore(local, remote, &fakeAuth{authed: true, name: "Ada"})

	require.NoError(t, s.Load(context.Background()))

	folders := s.Folders()
	require.Len(t, folders, 1)
	assert.Equal(t, "Cloud", folders[0].Title)
	assert.Equal(t, "Cloud", local.folders(t)[0].Title)

	msg := s.Message()
	require.NotNil(t, msg)
	assert.Equal(t, domain.SyncSuccess, msg.Kind)
	assert.Contains(t, msg.Text, "Ada")
}

func TestLoadFetchFailureKeepsLocalData(t *testing.T) {
	local := newMemLocal()
	raw, _ := json.Marshal([]domain.Folder{{ID: "f1", Title: "Precious", Files: []domain.File{}}})
	local.data[LocalKey] = string(raw)

	remote := &fakeRemote{fetchErr: errors.New("network down")}
	s := newTestStore(local, remote, &fakeAuth{authed: true, name: "Ada"})

	require.NoError(t, s.Load(context.Background()))

	// A transient fetch failure must not discard locally-visible data.
	folders := s.Folders()
	require.Len(t, folders, 1)
	assert.Equal(t, "Precious", folders[0].Title)
	assert.True(t, s.SyncDegraded())

	msg := s.Message()
	require.NotNil(t, msg)
	assert.Equal(t, domain.SyncWarning, msg.Kind)
}

func TestLoadEmptyRemotePushesLocalData(t *testing.T) {
	local := newMemLocal()
	raw, _ := json.Marshal([]domain.Folder{{ID: "f1", Title: "Offline work", Files: []domain.File{}}})
	local.data[LocalKey] = string(raw)

	remote := &fakeRemote{}
	s := newTestStore(local, remote, &fakeAuth{authed: true, name: "Ada"})

	require.NoError(t, s.Load(context.Background()))

	// First sync: the guest-era tree survives and seeds the cloud.
	require.Len(t, remote.pushes, 1)
	assert.Equal(t, "Offline work", remote.pushes[0][0].Title)
	assert.False(t, s.SyncDegraded())
}

func TestMutatorsOnMissingTargets(t *testing.T) {
	s := newTestStore(newMemLocal(), &fakeRemote{}, &fakeAuth{})

	assert.ErrorIs(t, s.DeleteFolder(context.Background(), "nope"), ErrFolderNotFound)
	assert.ErrorIs(t, s.RenameFolder(context.Background(), "nope", "x"), ErrFolderNotFound)
	assert.ErrorIs(t, s.SaveCode(context.Background(), "nope", "nope", "x"), ErrFolderNotFound)

	folder, err := s.CreateWorkspace(context.Background(), "F1", "a.cpp", domain.LanguageCpp)
	require.NoError(t, err)
	assert.ErrorIs(t, s.DeleteFile(context.Background(), folder.ID, "nope"), ErrFileNotFound)
	assert.ErrorIs(t, s.RenameFile(context.Background(), folder.ID, "nope", "x"), ErrFileNotFound)
}

func TestLookupSafety(t *testing.T) {
	s := newTestStore(newMemLocal(), &fakeRemote{}, &fakeAuth{})

	// Never panics, never errors: the zero result signals stale navigation.
	code, ok := s.Code("ghost-folder", "ghost-file")
	assert.False(t, ok)
	assert.Empty(t, code)

	lang, ok := s.Language("ghost-folder", "ghost-file")
	assert.False(t, ok)
	assert.Empty(t, lang)

	title, ok := s.Title("ghost-folder", "ghost-file")
	assert.False(t, ok)
	assert.Empty(t, title)
}

func TestSetLanguageResetsTemplate(t *testing.T) {
	s := newTestStore(newMemLocal(), &fakeRemote{}, &fakeAuth{})

	folder, err := s.CreateWorkspace(context.Background(), "F1", "a.cpp", domain.LanguageCpp)
	require.NoError(t, err)
	fileID := folder.Files[0].ID

	require.NoError(t, s.SaveCode(context.Background(), folder.ID, fileID, "custom edits"))
	require.NoError(t, s.SetLanguage(context.Background(), folder.ID, fileID, domain.LanguagePython))

	code, ok := s.Code(folder.ID, fileID)
	require.True(t, ok)
	assert.Equal(t, domain.DefaultCode(domain.LanguagePython), code)

	lang, _ := s.Language(folder.ID, fileID)
	assert.Equal(t, domain.LanguagePython, lang)
}

func TestLogoutClearsSession(t *testing.T) {
	local := newMemLocal()
	s := newTestStore(local, &fakeRemote{}, &fakeAuth{authed: true})

	_, err := s.CreateWorkspace(context.Background(), "F1", "a.cpp", domain.LanguageCpp)
	require.NoError(t, err)

	require.NoError(t, s.Logout())

	assert.Empty(t, s.Folders())
	assert.Nil(t, s.Message())
	_, ok := local.data[LocalKey]
	assert.False(t, ok)
}

func TestRenameAndDeleteFlow(t *testing.T) {
	s := newTestStore(newMemLocal(), &fakeRemote{}, &fakeAuth{})
	ctx := context.Background()

	folder, err := s.CreateWorkspace(ctx, "F1", "a.cpp", domain.LanguageCpp)
	require.NoError(t, err)

	second, err := s.AddFile(ctx, folder.ID, "b.py", domain.LanguagePython)
	require.NoError(t, err)

	require.NoError(t, s.RenameFile(ctx, folder.ID, second.ID, "renamed.py"))
	title, ok := s.Title(folder.ID, second.ID)
	require.True(t, ok)
	assert.Equal(t, "renamed.py", title)

	require.NoError(t, s.DeleteFile(ctx, folder.ID, second.ID))
	_, ok = s.Title(folder.ID, second.ID)
	assert.False(t, ok)

	require.NoError(t, s.DeleteFolder(ctx, folder.ID))
	assert.Empty(t, s.Folders())
}
