// Package builder is the build-your-own Ceremony Bowl configurator: one
// option per category, a running cook time, and drink pairings for the pick.
package builder

import (
	"errors"
	"fmt"
	"strings"
)

// Category is one pillar of a bowl.
type Category string

const (
	Base    Category = "base"
	Protein Category = "protein"
	Flavor  Category = "flavor"
	Finish  Category = "finish"
)

// Categories lists the pillars in build order.
var Categories = []Category{Base, Protein, Flavor, Finish}

// Title is the display name of the category.
func (c Category) Title() string {
	switch c {
	case Base:
		return "Base"
	case Protein:
		return "Protein"
	case Flavor:
		return "Flavor Boost"
	case Finish:
		return "Finish"
	}
	return string(c)
}

var (
	ErrUnknownCategory = errors.New("builder: unknown category")
	ErrUnknownOption   = errors.New("builder: unknown option")
)

// Option is one choice within a category. CookTime is in minutes.
type Option struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	CookTime    int      `json:"cookTime"`
	Pairing     string   `json:"pairing"`
}

// Highlight is a curated drink pairing shown next to the builder.
type Highlight struct {
	Title    string   `json:"title"`
	Beverage string   `json:"beverage"`
	Matches  []string `json:"matches"`
	Note     string   `json:"note"`
}

var options = map[Category][]Option{
	Base: {
		{ID: "grain-bowl", Label: "Ancient Grain Bowl", Description: "Warm quinoa, millet, and barley with coriander butter.", CookTime: 12, Pairing: "Pairs with citrus-forward whites or cucumber coolers."},
		{ID: "leafy-garden", Label: "Leafy Garden Crunch", Description: "Hydroponic lettuce, baby kale, shaved fennel, seed sprinkle.", CookTime: 6, Pairing: "Loves sparkling rosé or basil lemonade."},
	},
	Protein: {
		{ID: "herbed-paneer", Label: "Charred Herbed Paneer", Description: "Paneer seared with smoked paprika and fenugreek.", CookTime: 8, Pairing: "Serve with semi-dry Riesling or mango spritz."},
		{ID: "miso-tofu", Label: "Miso Glazed Tofu", Description: "Silken tofu lacquered with citrus miso glaze.", CookTime: 7, Pairing: "Great with chilled sake or ginger tonic."},
	},
	Flavor: {
		{ID: "smoky-tamarind", Label: "Smoky Tamarind Burst", Description: "Tamarind, chipotle, and jaggery reduction drizzle.", CookTime: 5, Pairing: "Balances bold reds or hibiscus cooler."},
		{ID: "green-goddess", Label: "Green Goddess Chill", Description: "Mint, cilantro, yogurt, lime zest, and cumin.", CookTime: 4, Pairing: "Try with crisp Sauvignon Blanc or mint spritz."},
	},
	Finish: {
		{ID: "crisp-lotus", Label: "Crisp Lotus Crunch", Description: "Lotus root chips tossed in smoked chili salt.", CookTime: 3, Pairing: "Enjoy with wheat beer or salted lime soda."},
		{ID: "seed-fur", Label: "Sesame Seed Furikake", Description: "Toasted sesame, nori flakes, and puffed amaranth.", CookTime: 2, Pairing: "Pairs with dry cider or yuzu spritzer."},
	},
}

var highlights = []Highlight{
	{
		Title:    "Fresh & Crisp",
		Beverage: "Sauvignon Blanc / Citrus Spritz",
		Matches:  []string{"Cucumber Boats", "Ancient Grain Bowl builds"},
		Note:     "Bright acidity keeps herbs lively and cuts through creamy textures.",
	},
	{
		Title:    "Bold & Smoky",
		Beverage: "Pinot Noir / Hibiscus Cooler",
		Matches:  []string{"Nachos Salad", "Smoky Tamarind Burst builds"},
		Note:     "Fruity spice mirrors chipotle heat while staying refreshing.",
	},
	{
		Title:    "Cooling & Aromatic",
		Beverage: "Mint Mocktail / Riesling",
		Matches:  []string{"BiteBuzz Mocktail", "Green Goddess Chill builds"},
		Note:     "Sweet aromatics soothe spice and highlight citrus layers.",
	},
}

// Options returns the choices for c, or nil for an unknown category.
func Options(c Category) []Option {
	src := options[c]
	if src == nil {
		return nil
	}
	out := make([]Option, len(src))
	for i, o := range src {
		o.Category = c
		out[i] = o
	}
	return out
}

// Highlights returns the curated pairing guide.
func Highlights() []Highlight {
	out := make([]Highlight, len(highlights))
	for i, h := range highlights {
		h.Matches = append([]string(nil), h.Matches...)
		out[i] = h
	}
	return out
}

// Selection maps a category to the chosen option id. Blank ids are skipped.
type Selection map[Category]string

// Bowl is the evaluated build.
type Bowl struct {
	Options   []Option `json:"options"`
	CookTime  int      `json:"cookTime"`
	Pairings  []string `json:"pairings"`
	Completed int      `json:"completed"`
	Total     int      `json:"total"`
	Complete  bool     `json:"complete"`
}

// Build resolves a selection. Options come back in category order, cook
// times are summed, and pairings keep first-seen order without duplicates.
// Partial builds are allowed; unknown categories or ids are errors.
func Build(sel Selection) (Bowl, error) {
	for c := range sel {
		if _, ok := options[c]; !ok {
			return Bowl{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
	}

	bowl := Bowl{Options: []Option{}, Pairings: []string{}, Total: len(Categories)}
	seen := make(map[string]struct{})
	for _, c := range Categories {
		id := strings.TrimSpace(sel[c])
		if id == "" {
			continue
		}
		opt, ok := find(c, id)
		if !ok {
			return Bowl{}, fmt.Errorf("%w: %q in %s", ErrUnknownOption, id, c)
		}
		bowl.Options = append(bowl.Options, opt)
		bowl.CookTime += opt.CookTime
		if _, dup := seen[opt.Pairing]; !dup {
			seen[opt.Pairing] = struct{}{}
			bowl.Pairings = append(bowl.Pairings, opt.Pairing)
		}
	}
	bowl.Completed = len(bowl.Options)
	bowl.Complete = bowl.Completed == bowl.Total
	return bowl, nil
}

func find(c Category, id string) (Option, bool) {
	for _, o := range options[c] {
		if o.ID == id {
			o.Category = c
			return o, true
		}
	}
	return Option{}, false
}
