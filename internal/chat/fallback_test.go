package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Clark-Hu/bitebuzz/internal/builder"
	"github.com/Clark-Hu/bitebuzz/internal/menu"
)

func TestFallback(t *testing.T) {
	dishes := []menu.Dish{
		{ID: "sold-out", Name: "Sold Out Samosa", Description: "gone", Available: false},
		{ID: "mocktail", Name: "BiteBuzz Mocktail", Description: "mint and fizz", Available: true},
	}

	tests := []struct {
		name   string
		prompt string
		dishes []menu.Dish
		want   string
	}{
		{"menu lineup", "What's on the MENU?", dishes, "Today's BiteBuzz lineup:\n• Sold Out Samosa\n• BiteBuzz Mocktail\nScan, taste, and let your sensors decide! ⚡"},
		{"empty lineup", "list snacks", nil, "Today's BiteBuzz lineup:\nNo snacks ready yet!\nScan, taste, and let your sensors decide! ⚡"},
		{"recommend available", "what do you recommend", dishes, "I'd recommend the BiteBuzz Mocktail — mint and fizz"},
		{"recommend none", "recommend something", nil, "No dishes available right now. Even BuzzBot needs a snack break."},
		{"recommend first when none available", "recommend", dishes[:1], "I'd recommend the Sold Out Samosa — gone"},
		{"health", "is it healthy?", dishes, "All our snacks are under 300 calories — BiteBuzz keeps taste high and guilt low! 🍃"},
		{"default", "hello", dishes, "Ask me about our snacks, calories, or the BuzzMeter scores. I’m always hungry for questions. 🤖"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Fallback(tc.prompt, tc.dishes))
		})
	}
}

func TestFallbackDishKeywords(t *testing.T) {
	for prompt, prefix := range map[string]string{
		"tell me about the mocktail": "The BiteBuzz Mocktail?",
		"bhel please":                "Our Bhel Poori",
		"NACHOS":                     "Nachos Salad",
		"cucumber?":                  "Cucumber Bites",
	} {
		got := Fallback(prompt, nil)
		assert.True(t, strings.HasPrefix(got, prefix), "Fallback(%q) = %q", prompt, got)
	}
}

func TestScripted(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
		ok     bool
	}{
		{"Can I build a custom bowl?", builder.Guide(), true},
		{"tell me about the Ceremony Bowl", builder.Guide(), true},
		{"any wine pairing for nachos?", builder.PairingGuide(), true},
		{"what to drink with bhel", builder.PairingGuide(), true},
		{"build me something from the menu", "", false},
		{"hello", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.prompt, func(t *testing.T) {
			got, ok := Scripted(tc.prompt)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	assert.Equal(t, builder.PairingGuide(), Fallback("beverage ideas?", nil))
	assert.True(t, strings.HasPrefix(Fallback("build a menu list", nil), "Today's BiteBuzz lineup:"))
}
