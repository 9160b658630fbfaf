// Package workspace holds the client-side source of truth for the
// folder/file tree. Mutations apply optimistically: the in-memory tree and
// the local store are always written first, and the cloud push is
// best-effort on top. A failed push never rolls anything back; it only
// downgrades the resulting sync message.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"buggfix/internal/domain"

	"github.com/google/uuid"
)

// LocalKey is the single key under which the JSON folders array persists.
const LocalKey = "data"

var (
	ErrFolderNotFound = errors.New("folder not found")
	ErrFileNotFound   = errors.New("file not found")
	ErrEmptyTitle     = errors.New("title must not be empty")
)

// LocalStore is the durable string key-value store backing guest mode and
// mirroring the last-known cloud state. Operations are synchronous.
type LocalStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// RemoteStore is the cloud side of the sync pair.
type RemoteStore interface {
	FetchWorkspaces(ctx context.Context) ([]domain.Workspace, error)
	PushWorkspaces(ctx context.Context, folders []domain.Folder) error
}

// Identity reports the current authentication state.
type Identity interface {
	Authenticated() bool
	DisplayName() string
}

// Store reconciles local, cloud, and in-memory workspace state.
type Store struct {
	mu     sync.Mutex
	local  LocalStore
	remote RemoteStore
	auth   Identity
	log    *slog.Logger

	folders  []domain.Folder
	msg      *domain.SyncMessage
	degraded bool

	now   func() time.Time
	newID func() string
}

// New wires the store to its collaborators. All dependencies are explicit;
// the store never reaches into ambient state.
func New(local LocalStore, remote RemoteStore, auth Identity, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		local:  local,
		remote: remote,
		auth:   auth,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// Load initializes the tree. Runs on startup and again whenever the
// authentication state changes.
//
// Authenticated: adopt the cloud tree when one exists and mirror it
// locally. When the cloud has nothing yet, keep the local tree and push it
// up as the first sync. When the fetch fails, keep the local tree and mark
// sync degraded; a transient network error must never discard local data.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.auth.Authenticated() {
		folders, err := s.readLocal()
		if err != nil {
			s.folders = nil
			s.setMessage(domain.SyncError, "Local storage is unavailable. Changes will not persist.")
			return err
		}
		s.folders = folders
		return nil
	}

	workspaces, err := s.remote.FetchWorkspaces(ctx)
	if err != nil {
		s.log.Warn("workspace fetch failed, keeping local data", "error", err)
		folders, lerr := s.readLocal()
		if lerr != nil {
			s.folders = nil
			s.setMessage(domain.SyncError, "Local storage is unavailable. Changes will not persist.")
			return lerr
		}
		s.folders = folders
		s.degraded = true
		s.setMessage(domain.SyncWarning, "Failed to load your saved workspaces. Using local data instead.")
		return nil
	}

	s.degraded = false

	if len(workspaces) > 0 {
		s.folders = cloneTree(workspaces[0].Folders)
		if err := s.writeLocal(s.folders); err != nil {
			s.setMessage(domain.SyncError, "Could not mirror your workspaces to local storage.")
			return err
		}
		s.setMessage(domain.SyncSuccess,
			fmt.Sprintf("Welcome back, %s! Your workspaces are synced.", s.auth.DisplayName()))
		return nil
	}

	// Nothing in the cloud yet: local data wins and seeds the first push.
	folders, err := s.readLocal()
	if err != nil {
		s.folders = nil
		s.setMessage(domain.SyncError, "Local storage is unavailable. Changes will not persist.")
		return err
	}
	s.folders = folders

	if len(folders) > 0 {
		if err := s.remote.PushWorkspaces(ctx, folders); err != nil {
			s.degraded = true
			s.setMessage(domain.SyncWarning, "Your changes are saved locally but not synced to the cloud.")
			return nil
		}
		s.setMessage(domain.SyncSuccess, "Your local workspaces were uploaded to the cloud.")
	}
	return nil
}

// CreateWorkspace adds a folder seeded with one file holding the
// language's default template.
func (s *Store) CreateWorkspace(ctx context.Context, folderName, fileName string, lang domain.Language) (domain.Folder, error) {
	if folderName == "" {
		return domain.Folder{}, ErrEmptyTitle
	}
	if !domain.ValidLanguage(lang) {
		return domain.Folder{}, fmt.Errorf("unsupported language %q", lang)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder := domain.Folder{
		ID:    s.newID(),
		Title: folderName,
		Files: []domain.File{
			{
				ID:         s.newID(),
				Title:      fileName,
				Language:   lang,
				Code:       domain.DefaultCode(lang),
				LastEdited: s.now(),
			},
		},
	}

	next := cloneTree(s.folders)
	next = append(next, folder)

	if err := s.commit(ctx, next); err != nil {
		return domain.Folder{}, err
	}
	return folder, nil
}

// DeleteFolder removes the folder and everything in it.
func (s *Store) DeleteFolder(ctx context.Context, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Folder, 0, len(s.folders))
	found := false
	for _, folder := range cloneTree(s.folders) {
		if folder.ID == folderID {
			found = true
			continue
		}
		next = append(next, folder)
	}
	if !found {
		return ErrFolderNotFound
	}

	return s.commit(ctx, next)
}

// RenameFolder sets a new title on the folder.
func (s *Store) RenameFolder(ctx context.Context, folderID, title string) error {
	if title == "" {
		return ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneTree(s.folders)
	folder := findFolder(next, folderID)
	if folder == nil {
		return ErrFolderNotFound
	}
	folder.Title = title

	return s.commit(ctx, next)
}

// AddFile creates a file inside the folder, seeded with the language's
// default template.
func (s *Store) AddFile(ctx context.Context, folderID, title string, lang domain.Language) (domain.File, error) {
	if title == "" {
		return domain.File{}, ErrEmptyTitle
	}
	if !domain.ValidLanguage(lang) {
		return domain.File{}, fmt.Errorf("unsupported language %q", lang)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneTree(s.folders)
	folder := findFolder(next, folderID)
	if folder == nil {
		return domain.File{}, ErrFolderNotFound
	}

	file := domain.File{
		ID:         s.newID(),
		Title:      title,
		Language:   lang,
		Code:       domain.DefaultCode(lang),
		LastEdited: s.now(),
	}
	folder.Files = append(folder.Files, file)

	if err := s.commit(ctx, next); err != nil {
		return domain.File{}, err
	}
	return file, nil
}

// RenameFile sets a new title on the file.
func (s *Store) RenameFile(ctx context.Context, folderID, fileID, title string) error {
	if title == "" {
		return ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneTree(s.folders)
	file, err := findFile(next, folderID, fileID)
	if err != nil {
		return err
	}
	file.Title = title

	return s.commit(ctx, next)
}

// DeleteFile removes the file from its folder.
func (s *Store) DeleteFile(ctx context.Context, folderID, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneTree(s.folders)
	folder := findFolder(next, folderID)
	if folder == nil {
		return ErrFolderNotFound
	}

	files := make([]domain.File, 0, len(folder.Files))
	found := false
	for _, f := range folder.Files {
		if f.ID == fileID {
			found = true
			continue
		}
		files = append(files, f)
	}
	if !found {
		return ErrFileNotFound
	}
	folder.Files = files

	return s.commit(ctx, next)
}

// SetLanguage switches the file's language and resets its code to the new
// language's default template: the buffer belongs to the language, the
// same way the editor behaves.
func (s *Store) SetLanguage(ctx context.Context, folderID, fileID string, lang domain.Language) error {
	if !domain.ValidLanguage(lang) {
		return fmt.Errorf("unsupported language %q", lang)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneTree(s.folders)
	file, err := findFile(next, folderID, fileID)
	if err != nil {
		return err
	}
	file.Language = lang
	file.Code = domain.DefaultCode(lang)
	file.LastEdited = s.now()

	return s.commit(ctx, next)
}

// SaveCode replaces the file's code buffer.
func (s *Store) SaveCode(ctx context.Context, folderID, fileID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneTree(s.folders)
	file, err := findFile(next, folderID, fileID)
	if err != nil {
		return err
	}
	file.Code = code
	file.LastEdited = s.now()

	return s.commit(ctx, next)
}

// Code looks up a file's code buffer. The ok result is false when the
// (folderID, fileID) pair does not resolve; callers use that to detect
// stale navigation instead of crashing.
func (s *Store) Code(folderID, fileID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := findFile(s.folders, folderID, fileID)
	if err != nil {
		return "", false
	}
	return file.Code, true
}

// Language looks up a file's language tag.
func (s *Store) Language(folderID, fileID string) (domain.Language, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := findFile(s.folders, folderID, fileID)
	if err != nil {
		return "", false
	}
	return file.Language, true
}

// Title looks up a file's title.
func (s *Store) Title(folderID, fileID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := findFile(s.folders, folderID, fileID)
	if err != nil {
		return "", false
	}
	return file.Title, true
}

// Folders returns a snapshot of the current tree. The copy is the
// caller's to keep; later mutations never alias into it.
func (s *Store) Folders() []domain.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneTree(s.folders)
}

// Message returns the current sync notification, or nil.
func (s *Store) Message() *domain.SyncMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.msg == nil {
		return nil
	}
	msg := *s.msg
	return &msg
}

// ClearMessage dismisses the current sync notification.
func (s *Store) ClearMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.msg = nil
}

// SyncDegraded reports whether the last cloud interaction failed.
func (s *Store) SyncDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.degraded
}

// Logout wipes local storage and in-memory state so one identity's
// workspaces cannot leak into the next session.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.folders = nil
	s.msg = nil
	s.degraded = false

	if err := s.local.Delete(LocalKey); err != nil {
		return fmt.Errorf("failed to clear local storage: %w", err)
	}
	return nil
}

// commit is the shared tail of every mutator: adopt the snapshot, persist
// it locally, then best-effort push. Local write failure is fatal for the
// operation and surfaced; push failure only downgrades the message.
func (s *Store) commit(ctx context.Context, folders []domain.Folder) error {
	s.folders = folders

	if err := s.writeLocal(folders); err != nil {
		s.setMessage(domain.SyncError, "Could not save to local storage. Your change is not persisted.")
		return fmt.Errorf("local save failed: %w", err)
	}

	if !s.auth.Authenticated() {
		s.setMessage(domain.SyncInfo, "Your workspace is saved locally. Create an account to save it to the cloud!")
		return nil
	}

	if err := s.remote.PushWorkspaces(ctx, folders); err != nil {
		s.log.Warn("cloud push failed", "error", err)
		s.degraded = true
		s.setMessage(domain.SyncWarning, "Your changes are saved locally but not synced to the cloud.")
		return nil
	}

	s.degraded = false
	s.setMessage(domain.SyncSuccess, "Your changes are synced to the cloud.")
	return nil
}

func (s *Store) setMessage(kind domain.SyncMessageKind, text string) {
	s.msg = &domain.SyncMessage{Kind: kind, Text: text}
}

func (s *Store) readLocal() ([]domain.Folder, error) {
	raw, ok, err := s.local.Get(LocalKey)
	if err != nil {
		return nil, fmt.Errorf("local read failed: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var folders []domain.Folder
	if err := json.Unmarshal([]byte(raw), &folders); err != nil {
		s.log.Warn("discarding corrupt local workspace data", "error", err)
		return nil, nil
	}
	return folders, nil
}

func (s *Store) writeLocal(folders []domain.Folder) error {
	raw, err := json.Marshal(folders)
	if err != nil {
		return fmt.Errorf("failed to encode folders: %w", err)
	}
	return s.local.Set(LocalKey, string(raw))
}

// cloneTree copies the folders slice and every nested files slice, so the
// returned tree shares no slice identity with its source. File and Folder
// carry only value fields besides those slices, which makes this a full
// deep copy.
func cloneTree(folders []domain.Folder) []domain.Folder {
	out := make([]domain.Folder, len(folders))
	copy(out, folders)
	for i := range out {
		files := make([]domain.File, len(out[i].Files))
		copy(files, out[i].Files)
		out[i].Files = files
	}
	return out
}

func findFolder(folders []domain.Folder, folderID string) *domain.Folder {
	for i := range folders {
		if folders[i].ID == folderID {
			return &folders[i]
		}
	}
	return nil
}

func findFile(folders []domain.Folder, folderID, fileID string) (*domain.File, error) {
	folder := findFolder(folders, folderID)
	if folder == nil {
		return nil, ErrFolderNotFound
	}
	for i := range folder.Files {
		if folder.Files[i].ID == fileID {
			return &folder.Files[i], nil
		}
	}
	return nil, ErrFileNotFound
}
