package chat

import (
	"fmt"
	"strings"
)

// systemPrompt describes the persona and the current menu for LLM providers.
func systemPrompt(req Request) string {
	var b strings.Builder
	switch req.Persona {
	case PersonaGenie:
		b.WriteString("You are the Food Genie at a BiteBuzz tasting event: theatrical, a little cheeky, fond of daring guests to try bold flavours.\n")
	default:
		b.WriteString("You are BuzzBot, the playful robot host of a BiteBuzz tasting event. You are upbeat, geeky and brief.\n")
	}
	b.WriteString("Answer in at most three short sentences. Only talk about the dishes listed below and their scores.\n")

	if len(req.Dishes) > 0 {
		b.WriteString("\nMenu:\n")
		for _, d := range req.Dishes {
			status := "available"
			if !d.Available {
				status = "sold out"
			}
			fmt.Fprintf(&b, "- %s (%s, %s, spice %d/5): %s\n", d.Name, d.Category, status, d.Spice, d.Description)
		}
	}
	if len(req.Leaderboard) > 0 {
		b.WriteString("\nLeaderboard:\n")
		for _, e := range req.Leaderboard {
			fmt.Fprintf(&b, "- %s: %s scored %d/5\n", e.Name, e.Dish, e.Score)
		}
	}
	return b.String()
}

// turns normalizes the history for model APIs: blank messages and leading
// assistant turns are dropped and consecutive turns of one role are merged,
// so roles strictly alternate starting with the guest.
func turns(history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		if len(out) == 0 && !m.FromUser() {
			continue
		}
		role := RoleAssistant
		if m.FromUser() {
			role = RoleUser
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n" + text
			continue
		}
		out = append(out, Message{ID: m.ID, Role: role, Content: text})
	}
	return out
}
