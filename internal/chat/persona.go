package chat

import "strings"

// Persona selects the voice and mood vocabulary of the bot.
type Persona string

const (
	PersonaBuzzBot Persona = "buzzbot"
	PersonaGenie   Persona = "genie"
)

// ParsePersona maps free-form input to a persona, defaulting to BuzzBot.
func ParsePersona(s string) Persona {
	if strings.EqualFold(strings.TrimSpace(s), string(PersonaGenie)) {
		return PersonaGenie
	}
	return PersonaBuzzBot
}

// Mood drives the bot's avatar animation.
type Mood string

const (
	MoodIdle    Mood = "idle"
	MoodHappy   Mood = "happy"
	MoodCurious Mood = "curious"
	MoodPlayful Mood = "playful"
	MoodSassy   Mood = "sassy"
	MoodWarning Mood = "warning"

	MoodDelighted Mood = "delighted"
	MoodEyerolled Mood = "eyerolled"
	MoodSass      Mood = "sass"
)

type moodRule struct {
	mood     Mood
	keywords []string
}

// First matching rule wins.
var buzzRules = []moodRule{
	{MoodHappy, []string{"yum", "great", "delicious"}},
	{MoodCurious, []string{"hmm", "why"}},
	{MoodPlayful, []string{"ha!", "fun", "buzz"}},
	{MoodSassy, []string{"spice", "fire"}},
	{MoodWarning, []string{"careful", "note"}},
}

var genieRules = []moodRule{
	{MoodSass, []string{"ha!", "told you", "cheeky"}},
	{MoodDelighted, []string{"brave", "challenge", "bold"}},
	{MoodEyerolled, []string{"spice", "fire", "burn"}},
	{MoodWarning, []string{"careful", "warning", "note"}},
}

// Classify infers a mood from reply text using the persona's keywords.
func (p Persona) Classify(text string) Mood {
	rules := buzzRules
	if p == PersonaGenie {
		rules = genieRules
	}
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.mood
			}
		}
	}
	return MoodIdle
}

// Allows reports whether mood belongs to the persona's vocabulary.
func (p Persona) Allows(mood Mood) bool {
	if mood == MoodIdle || mood == MoodWarning {
		return true
	}
	rules := buzzRules
	if p == PersonaGenie {
		rules = genieRules
	}
	for _, rule := range rules {
		if rule.mood == mood {
			return true
		}
	}
	return false
}
