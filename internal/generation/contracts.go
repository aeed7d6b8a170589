// Package generation turns an instruction and a user story into a saved provider response.
package generation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/temirov/featuregen/internal/conversation"
)

// ErrEmptyCompletion reports a provider response without any text.
var ErrEmptyCompletion = errors.New("provider returned an empty completion")

// Completer sends an ordered conversation to a provider and returns the
// text of the chosen completion.
type Completer interface {
	Complete(ctx context.Context, messages []conversation.Message) (string, error)
}

// Settings are the sampling parameters of one generation request.
type Settings struct {
	Model       string
	Temperature float64
	Seed        *int
	MaxTokens   int
}

// Connection carries the explicit credentials and endpoint for a provider.
type Connection struct {
	APIKey     string
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Layout decides how the instruction and user story become messages.
type Layout int

const (
	// LayoutSystemUser sends the instruction as system and the story as user.
	LayoutSystemUser Layout = iota
	// LayoutUserUser sends both as consecutive user messages.
	LayoutUserUser
	// LayoutConcatenated sends one user message: instruction, blank line, story.
	LayoutConcatenated
)

const concatenationSeparator = "\n\n"

// Build assembles the conversation. The instruction always precedes the story.
func (l Layout) Build(instruction string, userStory string) *conversation.Conversation {
	chat := conversation.New()
	switch l {
	case LayoutUserUser:
		chat.Append(conversation.RoleUser, instruction)
		chat.Append(conversation.RoleUser, userStory)
	case LayoutConcatenated:
		chat.Append(conversation.RoleUser, instruction+concatenationSeparator+userStory)
	default:
		chat.Append(conversation.RoleSystem, instruction)
		chat.Append(conversation.RoleUser, userStory)
	}
	return chat
}

// Profile captures the per-vendor behaviour of a generation run.
type Profile struct {
	OutputFileName string
	Layout         Layout
	TrimInputs     bool
	Retry          bool
	StripFence     bool
	EchoCompletion bool
	DumpMessages   bool
}

type Job struct {
	InstructionPath string
	UserStoryPath   string
	OutputDir       string
	Debug           bool
}

type Result struct {
	OutputPath string
	Completion string
	Messages   []conversation.Message
}
