package editor

import "errors"

// Tab is the active editor tab.
type Tab string

const (
	TabEditor     Tab = "Editor"
	TabRecipients Tab = "Recipients"
	TabSettings   Tab = "Settings"
)

func (t Tab) Valid() bool {
	switch t {
	case TabEditor, TabRecipients, TabSettings:
		return true
	}
	return false
}

// Modal is the dialog open on top of the editor, if any.
type Modal string

const (
	ModalNone           Modal = ""
	ModalEnroll         Modal = "enroll"
	ModalAIAssistant    Modal = "ai-assistant"
	ModalVariablePicker Modal = "variable-picker"
	ModalPreview        Modal = "preview"
)

func (m Modal) Valid() bool {
	switch m {
	case ModalNone, ModalEnroll, ModalAIAssistant, ModalVariablePicker, ModalPreview:
		return true
	}
	return false
}

var (
	ErrUnknownTab      = errors.New("unknown tab")
	ErrUnknownModal    = errors.New("unknown modal")
	ErrSequenceIsNew   = errors.New("publish the sequence first")
	ErrSessionNotFound = errors.New("editor session not found")
	ErrStepNotFound    = errors.New("step not found")
	ErrEnrollInFlight  = errors.New("enrollment already in progress")
)
