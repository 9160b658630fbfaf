package ai

import (
	"context"
	"errors"
	"sync"

	"buggfix/internal/domain"
)

var (
	// ErrAnimationInProgress is returned when a toggle or AI run arrives
	// while a previous animation is still playing. Such requests are
	// dropped, not queued.
	ErrAnimationInProgress = errors.New("animation in progress")

	// ErrVersionsUnavailable is returned when toggling before both the
	// original and an AI version exist.
	ErrVersionsUnavailable = errors.New("no code versions to toggle between")
)

// Completer asks the backend for a free-text improvement suggestion.
type Completer interface {
	FixCode(ctx context.Context, code string, language domain.Language) (string, error)
}

// Session mediates one file's editing session against the AI pipeline: it
// tracks the pre-AI snapshot and the latest AI version, and animates
// transitions between them into the editor.
//
// The first AI round trip snapshots the editor content as the original
// version; later rounds only ever overwrite the AI version. While an
// animation plays the session reports Animating() and drops re-entrant
// requests.
type Session struct {
	mu        sync.Mutex
	editor    Editor
	animator  *Animator
	completer Completer
	language  domain.Language

	originalCode    string
	hasOriginal     bool
	aiCode          string
	hasAI           bool
	viewingOriginal bool
	animating       bool
}

func NewSession(editor Editor, animator *Animator, completer Completer, language domain.Language) *Session {
	return &Session{
		editor:    editor,
		animator:  animator,
		completer: completer,
		language:  language,
	}
}

// RunAI sends the current editor content to the completion service,
// parses the response, and — when a code block came back — animates it
// into the editor. The returned string is the feedback to display.
//
// A completion failure or a response without code changes no version
// state and runs no animation.
func (s *Session) RunAI(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.animating {
		s.mu.Unlock()
		return "", ErrAnimationInProgress
	}
	current := s.editor.Value()
	language := s.language
	s.mu.Unlock()

	response, err := s.completer.FixCode(ctx, current, language)
	if err != nil {
		return "Error calling AI endpoint.", err
	}

	result := Parse(response)
	if !result.HasCode {
		return result.Feedback, nil
	}

	s.mu.Lock()
	if s.animating {
		s.mu.Unlock()
		return "", ErrAnimationInProgress
	}
	if !s.hasOriginal {
		s.originalCode = current
		s.hasOriginal = true
	}
	s.aiCode = result.Code
	s.hasAI = true
	s.viewingOriginal = false
	s.animating = true
	s.mu.Unlock()

	s.applyAnimated(result.Code)

	return result.Feedback, nil
}

// Toggle swaps the editor between the original and AI versions with the
// same typing animation. Available only once both versions exist.
func (s *Session) Toggle() error {
	s.mu.Lock()
	if s.animating {
		s.mu.Unlock()
		return ErrAnimationInProgress
	}
	if !s.hasOriginal || !s.hasAI {
		s.mu.Unlock()
		return ErrVersionsUnavailable
	}

	var target string
	if s.viewingOriginal {
		target = s.aiCode
	} else {
		target = s.originalCode
	}
	s.viewingOriginal = !s.viewingOriginal
	s.animating = true
	s.mu.Unlock()

	s.applyAnimated(target)
	return nil
}

// applyAnimated plays the typing animation and always leaves the editor
// holding target: a failed replay falls back to an instant apply so the
// editor never sits in a half-written state.
func (s *Session) applyAnimated(target string) {
	defer func() {
		s.mu.Lock()
		s.animating = false
		s.mu.Unlock()
	}()

	if err := s.animator.Type(s.editor, target); err != nil {
		_ = s.editor.SetValue(target)
	}
}

// Animating reports whether a replay is in flight; the UI disables
// editing, language switches, and save/run actions while true.
func (s *Session) Animating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animating
}

// CanToggle reports whether both versions exist.
func (s *Session) CanToggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasOriginal && s.hasAI
}

// ViewingOriginal reports which version the editor currently shows.
func (s *Session) ViewingOriginal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewingOriginal
}

// OriginalCode returns the pre-AI snapshot, if one was taken.
func (s *Session) OriginalCode() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.originalCode, s.hasOriginal
}
