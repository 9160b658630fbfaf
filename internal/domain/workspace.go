package domain

import "time"

// Language is the set of languages the playground can edit and execute.
type Language string

const (
	LanguageCpp        Language = "cpp"
	LanguageJavascript Language = "javascript"
	LanguagePython     Language = "python"
	LanguageJava       Language = "java"
)

// ValidLanguage reports whether lang is one of the supported language tags.
func ValidLanguage(lang Language) bool {
	switch lang {
	case LanguageCpp, LanguageJavascript, LanguagePython, LanguageJava:
		return true
	}
	return false
}

// DefaultCode returns the starter template a new file of the given language
// is seeded with. Unknown languages get an empty buffer.
func DefaultCode(lang Language) string {
	return defaultCodes[lang]
}

var defaultCodes = map[Language]string{
	LanguageCpp: `#include <iostream>

int main() {
    std::cout << "Hello, BuggFix!" << std::endl;
    return 0;
}
`,
	LanguageJavascript: `console.log("Hello, BuggFix!");
`,
	LanguagePython: `print("Hello, BuggFix!")
`,
	LanguageJava: `public class Main {
    public static void main(String[] args) {
        System.out.println("Hello, BuggFix!");
    }
}
`,
}

// File is a named code buffer inside a Folder.
type File struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Language   Language  `json:"language"`
	Code       string    `json:"code"`
	LastEdited time.Time `json:"last_edited,omitempty"`
}

// Folder groups files inside a workspace.
type Folder struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Files []File `json:"files"`
}

// Workspace is the cloud document holding a user's entire folder tree.
// Each user owns at most one; the server collapses extras on read.
type Workspace struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Folders   []Folder  `json:"folders"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SaveWorkspaceRequest struct {
	Folders []Folder `json:"folders"`
}

type FixCodeRequest struct {
	Code     string   `json:"code" validate:"required"`
	Language Language `json:"language" validate:"required"`
}

type FixCodeResponse struct {
	Suggestions string `json:"suggestions"`
}

// SyncMessageKind classifies the outcome of a persistence operation.
type SyncMessageKind string

const (
	SyncSuccess SyncMessageKind = "success"
	SyncWarning SyncMessageKind = "warning"
	SyncInfo    SyncMessageKind = "info"
	SyncError   SyncMessageKind = "error"
)

// SyncMessage is the transient notification shown after a mutating
// operation. At most one is live at a time; a new one overwrites the old.
type SyncMessage struct {
	Kind SyncMessageKind `json:"kind"`
	Text string          `json:"text"`
}
