package menu

// Dish is a menu item that can receive feedback.
type Dish struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Category    string  `json:"category" yaml:"category"`
	Spice       int     `json:"spice" yaml:"spice"`
	Price       float64 `json:"price,omitempty" yaml:"price"`
	Available   bool    `json:"available" yaml:"available"`
	ImageURL    string  `json:"imageUrl,omitempty" yaml:"imageUrl"`
	Trivia      string  `json:"trivia,omitempty" yaml:"trivia"`
}

// Default returns the built-in feedback lineup.
func Default() []Dish {
	return []Dish{
		{
			ID:          "cucumber-boats",
			Name:        "Cucumber Boats",
			Description: "Hydrating cucumber cups with spice-kissed chickpeas and minty yogurt.",
			Category:    "veg",
			Spice:       2,
			Available:   true,
			ImageURL:    "https://blessmyfoodbypayal.com/wp-content/uploads/2025/08/IMG_2641.png",
			Trivia:      "Best chilled. The Genie pretends it dislikes mild snacks, but keeps refilling its plate.",
		},
		{
			ID:          "nachos-salad",
			Name:        "Nachos Salad",
			Description: "Crunchy nachos layered with beans, veggies, and AI-tuned dressing.",
			Category:    "veg",
			Spice:       4,
			Available:   true,
			Trivia:      "Pairs perfectly with the BiteBuzz Mocktail when you need both crunch and cool.",
		},
		{
			ID:          "mocktail",
			Name:        "BiteBuzz Mocktail",
			Description: "Sparkling mint, lemon, and cucumber essence engineered for balance.",
			Category:    "veg",
			Spice:       1,
			Available:   true,
			Trivia:      "Fizzes at exactly 3.1415 bubbles per second.",
		},
		{
			ID:          "bhel-poori",
			Name:        "Bhel Poori",
			Description: "Classic puffed rice chaos with chutneys, crunch, and digital swagger.",
			Category:    "veg",
			Spice:       3,
			Available:   true,
			Trivia:      "BiteBuzz folklore says the Genie gained its temper from this chutney.",
		},
	}
}
