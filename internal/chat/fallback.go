package chat

import (
	"strings"

	"github.com/Clark-Hu/bitebuzz/internal/builder"
	"github.com/Clark-Hu/bitebuzz/internal/menu"
)

var (
	builderKeywords = []string{"build", "custom bowl", "custom dish", "make my own", "ceremony bowl"}
	pairingKeywords = []string{"wine", "pairing", "beverage", "what to drink"}
)

// Scripted answers builder and pairing questions from the static guides.
// Lineup questions are left to the provider, so ok is false for them.
func Scripted(prompt string) (reply string, ok bool) {
	lower := strings.ToLower(prompt)
	if isLineupQuery(lower) {
		return "", false
	}
	switch {
	case containsAny(lower, builderKeywords...):
		return builder.Guide(), true
	case containsAny(lower, pairingKeywords...):
		return builder.PairingGuide(), true
	}
	return "", false
}

func isLineupQuery(lower string) bool {
	return containsAny(lower, "menu", "snacks", "list")
}

// Fallback builds the scripted reply used when no provider answers.
func Fallback(prompt string, dishes []menu.Dish) string {
	lower := strings.ToLower(prompt)

	if reply, ok := Scripted(prompt); ok {
		return reply
	}

	switch {
	case isLineupQuery(lower):
		lines := make([]string, 0, len(dishes))
		for _, d := range dishes {
			lines = append(lines, "• "+d.Name)
		}
		lineup := strings.Join(lines, "\n")
		if lineup == "" {
			lineup = "No snacks ready yet!"
		}
		return "Today's BiteBuzz lineup:\n" + lineup + "\nScan, taste, and let your sensors decide! ⚡"

	case strings.Contains(lower, "recommend"):
		pick, ok := recommend(dishes)
		if !ok {
			return "No dishes available right now. Even BuzzBot needs a snack break."
		}
		return "I'd recommend the " + pick.Name + " — " + pick.Description

	case containsAny(lower, "calorie", "health"):
		return "All our snacks are under 300 calories — BiteBuzz keeps taste high and guilt low! 🍃"
	case strings.Contains(lower, "mocktail"):
		return "The BiteBuzz Mocktail? Mint, lemon, cucumber — all fizz and no fuss. Perfect balance of sweet and cool. 🍹"
	case strings.Contains(lower, "bhel"):
		return "Our Bhel Poori crackles with puffed rice, chutneys, and fun. Smart street food at its best. 😋"
	case strings.Contains(lower, "nachos"):
		return "Nachos Salad — crunch meets color! A data-approved balance of spice, protein, and joy 🥗"
	case strings.Contains(lower, "cucumber"):
		return "Cucumber Bites: light, hydrating, and refreshingly geeky. Who knew health could taste this fun? 🥒"
	}
	return "Ask me about our snacks, calories, or the BuzzMeter scores. I’m always hungry for questions. 🤖"
}

// recommend picks the first available dish, else the first dish.
func recommend(dishes []menu.Dish) (menu.Dish, bool) {
	for _, d := range dishes {
		if d.Available {
			return d, true
		}
	}
	if len(dishes) > 0 {
		return dishes[0], true
	}
	return menu.Dish{}, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
