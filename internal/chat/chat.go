// Package chat answers menu questions as BuzzBot or the Food Genie. Replies
// come from a configured language-model provider when one answers in time,
// and from scripted keyword templates otherwise.
package chat

import (
	"context"
	"strings"

	"github.com/Clark-Hu/bitebuzz/internal/menu"
)

// Roles in a conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Reply sources.
const (
	SourceUpstream = "upstream"
	SourceGemini   = "gemini"
	SourceBedrock  = "bedrock"
	SourceFallback = "fallback"
	SourceScripted = "scripted"
)

// Message is one turn of a conversation.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FromUser reports whether the message was written by the guest. Any other
// role ("assistant", "buzzbot", "genie") is the bot.
func (m Message) FromUser() bool {
	return strings.EqualFold(strings.TrimSpace(m.Role), RoleUser)
}

// LeaderEntry is one row of the leaderboard given to the bot as context.
type LeaderEntry struct {
	Name  string `json:"name"`
	Dish  string `json:"dish"`
	Score int    `json:"score"`
}

// Request carries the conversation and the context the bot may cite.
type Request struct {
	Persona     Persona       `json:"persona,omitempty"`
	History     []Message     `json:"history"`
	Dishes      []menu.Dish   `json:"dishes"`
	Leaderboard []LeaderEntry `json:"leaderboard"`
}

// LatestUserMessage returns the most recent guest message, or "".
func (r Request) LatestUserMessage() string {
	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].FromUser() {
			return r.History[i].Content
		}
	}
	return ""
}

// Response is what a guest sees.
type Response struct {
	Reply  string `json:"reply"`
	Mood   Mood   `json:"mood"`
	Source string `json:"source"`
}

// Completion is a provider's raw answer. Mood and Source are optional.
type Completion struct {
	Reply  string
	Mood   Mood
	Source string
}

// Provider produces a reply from a language model or remote chat service.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Completion, error)
}
