package editor

import (
	"regexp"
	"strings"

	"prospectflow/models"
)

// ContentMode is how an email step's content is authored.
type ContentMode string

const (
	ContentEmpty    ContentMode = "empty"
	ContentManual   ContentMode = "manual"
	ContentAIPrompt ContentMode = "ai-prompt"
)

const (
	aiPromptPrefix = "[AI_PROMPT:"
	aiPromptSuffix = "]"
)

// Greedy and dot-matches-newline: everything up to the last closing
// bracket belongs to the prompt.
var aiPromptPattern = regexp.MustCompile(`(?s)\[AI_PROMPT:(.*)\]`)

// EncodeAIPrompt wraps prompt in the AI prompt sentinel.
func EncodeAIPrompt(prompt string) string {
	return aiPromptPrefix + prompt + aiPromptSuffix
}

// DecodeAIPrompt extracts the prompt from content. Typed text that happens
// to match the sentinel is indistinguishable from a real prompt.
func DecodeAIPrompt(content string) (string, bool) {
	m := aiPromptPattern.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ModeOf classifies content. The sentinel takes precedence over text.
func ModeOf(content string) ContentMode {
	if content == "" {
		return ContentEmpty
	}
	if _, ok := DecodeAIPrompt(content); ok {
		return ContentAIPrompt
	}
	return ContentManual
}

// WithAIPrompt replaces the content of an email step with the encoded
// prompt. Blank prompts are ignored.
func WithAIPrompt(id, prompt string) Updater {
	return func(s models.Sequence) models.Sequence {
		if strings.TrimSpace(prompt) == "" {
			return s
		}
		content := EncodeAIPrompt(prompt)
		s.Steps = UpdateStep(s.Steps, id, StepPatch{Content: &content})
		return s
	}
}

// WithAIPromptCleared empties the content of an AI authored step. Manual
// content is left alone.
func WithAIPromptCleared(id string) Updater {
	return func(s models.Sequence) models.Sequence {
		step, ok := FindStep(s.Steps, id)
		if !ok {
			return s
		}
		email, ok := step.Payload.(models.EmailStep)
		if !ok || ModeOf(email.Content) != ContentAIPrompt {
			return s
		}
		empty := ""
		s.Steps = UpdateStep(s.Steps, id, StepPatch{Content: &empty})
		return s
	}
}

// WithManualStart switches an empty email step to manual composing. The
// content becomes a single space so the step is no longer empty.
func WithManualStart(id string) Updater {
	return func(s models.Sequence) models.Sequence {
		step, ok := FindStep(s.Steps, id)
		if !ok {
			return s
		}
		email, ok := step.Payload.(models.EmailStep)
		if !ok || email.Content != "" {
			return s
		}
		space := " "
		s.Steps = UpdateStep(s.Steps, id, StepPatch{Content: &space})
		return s
	}
}
