// Package prompts provides prompt management with embedded defaults and
// config-level overrides.
//
// Embedded .tmpl files in code are the source of truth for defaults. An
// override replaces a default by key for the lifetime of the process.
//
// Resolution order:
//  1. Override (from config, if set)
//  2. Embedded default (from .tmpl files in code)
package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
)

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: extract_skills.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the result of resolving a prompt key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Hash       string   `json:"hash"`
}

// variablePattern matches template references like {{.Text}} or {{ .Doc.ID }}.
var variablePattern = regexp.MustCompile(`\{\{-?\s*\.([a-zA-Z_][a-zA-Z0-9_.]*)\s*-?\}\}`)

// ExtractVariables returns the sorted, distinct template variables in text.
// "Hello {{.Name}}, {{.Doc.ID}}" returns ["Doc.ID", "Name"].
func ExtractVariables(text string) []string {
	seen := make(map[string]struct{})
	var vars []string
	for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[match[1]]; ok {
			continue
		}
		seen[match[1]] = struct{}{}
		vars = append(vars, match[1])
	}
	sort.Strings(vars)
	return vars
}

// HashText returns a SHA256 hash of the text.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
