package ai

import (
	"regexp"
	"strings"
)

var (
	codeTagRe  = regexp.MustCompile(`(?s)<AI_CODE>(.*?)</AI_CODE>`)
	markdownRe = regexp.MustCompile("(?s)```(?:\\w*\\n)?(.*?)```")
)

const fallbackNote = "Note: AI provided code in markdown format instead of requested tags."

// Result splits a model response into the machine-readable code block and
// the human-readable feedback around it.
type Result struct {
	Code     string
	HasCode  bool
	Feedback string
}

// Parse extracts the first <AI_CODE> block from a model response. When the
// model ignored its instructions and used a markdown fence instead, the
// first fenced block is taken and the feedback is prefixed with a note.
// With no recognizable block the full response is returned as feedback.
//
// Parse is total: any input, including empty strings and unterminated
// markers, yields a Result without panicking.
func Parse(response string) Result {
	if response == "" {
		return Result{Feedback: "No AI response received."}
	}

	if m := codeTagRe.FindStringSubmatch(response); m != nil {
		return Result{
			Code:     strings.TrimSpace(m[1]),
			HasCode:  true,
			Feedback: strings.TrimSpace(codeTagRe.ReplaceAllString(response, "")),
		}
	}

	if m := markdownRe.FindStringSubmatch(response); m != nil {
		feedback := strings.TrimSpace(markdownRe.ReplaceAllString(response, ""))
		return Result{
			Code:     strings.TrimSpace(m[1]),
			HasCode:  true,
			Feedback: fallbackNote + "\n\n" + feedback,
		}
	}

	return Result{Feedback: response}
}
