package builder

import (
	"fmt"
	"strings"
)

// Guide renders the builder walkthrough the chat bots hand out.
func Guide() string {
	var b strings.Builder
	b.WriteString("✨ Build Your Own Ceremony Bowl: pick a Base, Protein, Flavor Boost, and Finish. The Genie tracks cook time and pairing tips for you!\n\n")
	for _, c := range Categories {
		fmt.Fprintf(&b, "🔹 *%s*\n", c.Title())
		for _, o := range Options(c) {
			fmt.Fprintf(&b, "   • %s (%d min): %s %s\n", o.Label, o.CookTime, o.Description, o.Pairing)
		}
		b.WriteString("\n")
	}
	b.WriteString("Select one from each pillar in the Ceremony Bowl builder to see total time and suggested pours in real-time.")
	return b.String()
}

// PairingGuide renders the curated drink pairings.
func PairingGuide() string {
	var b strings.Builder
	b.WriteString("🍷 *Wine & Beverage Pairing Guide* 🍹\n\n")
	for _, h := range highlights {
		fmt.Fprintf(&b, "• *%s*: %s\n", h.Title, h.Beverage)
		fmt.Fprintf(&b, "   Matches: %s\n", strings.Join(h.Matches, ", "))
		fmt.Fprintf(&b, "   Why: %s\n\n", h.Note)
	}
	b.WriteString("Explore the Ceremony Bowl builder for build presets!")
	return b.String()
}
