package ai

import (
	"strings"
	"time"
)

// Editor is the code buffer the animator writes into. Monaco-style: the
// whole value is replaced on every write.
type Editor interface {
	Value() string
	SetValue(value string) error
}

// Animator replays code into an editor with a typing effect. Structure
// appears instantly, content appears to be typed: each line's leading
// whitespace lands in one write, the rest of the line lands one character
// at a time, with a longer pause between lines. This pacing is deliberate;
// a flat character-by-character replay of the raw string (indentation
// included) reads much worse on deeply nested code.
type Animator struct {
	charDelay time.Duration
	lineDelay time.Duration
	sleep     func(time.Duration)
}

// DefaultCharDelay matches the editor's typing cadence.
const DefaultCharDelay = 15 * time.Millisecond

func NewAnimator(charDelay time.Duration) *Animator {
	return &Animator{
		charDelay: charDelay,
		lineDelay: 2 * charDelay,
		sleep:     time.Sleep,
	}
}

// Type clears the editor and replays code into it. On return without
// error the editor content equals code exactly. Any editor write failure
// aborts the replay and is returned; the caller decides how to recover.
func (a *Animator) Type(editor Editor, code string) error {
	if err := editor.SetValue(""); err != nil {
		return err
	}

	lines := strings.Split(code, "\n")
	for i, line := range lines {
		indent := leadingWhitespace(line)
		content := line[len(indent):]

		prefix := editor.Value()
		if i > 0 {
			prefix += "\n"
		}
		if err := editor.SetValue(prefix + indent); err != nil {
			return err
		}

		for _, r := range content {
			a.sleep(a.charDelay)
			if err := editor.SetValue(editor.Value() + string(r)); err != nil {
				return err
			}
		}

		if i < len(lines)-1 {
			a.sleep(a.lineDelay)
		}
	}

	return nil
}

func leadingWhitespace(line string) string {
	end := strings.IndexFunc(line, func(r rune) bool {
		return r != ' ' && r != '\t'
	})
	if end < 0 {
		return line
	}
	return line[:end]
}
