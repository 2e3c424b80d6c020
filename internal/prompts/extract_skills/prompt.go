package extract_skills

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/skillsync/skillextract/internal/prompts"
)

//go:embed system.tmpl
var systemPromptTmpl string

//go:embed user.tmpl
var userPromptTmpl string

// Prompt keys
const (
	SystemPromptKey = "extract_skills.system"
	UserPromptKey   = "extract_skills.user"
)

// PromptData is the data both templates render with.
type PromptData struct {
	DocumentID string
	Text       string
	InputType  string
	TopK       int
	Levels     bool
}

// RegisterPrompts registers the skill extraction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPromptTmpl,
		Description: "Skill extraction system prompt - taxonomy rules and output shape",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Skill extraction user prompt template",
	})
}

// Render executes a prompt template with data.
func Render(name, text string, data PromptData) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s prompt: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}
