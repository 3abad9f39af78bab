package game

import "math/rand/v2"

// Built-in prompts, used when the prompt source fails or has nothing
// for the requested room type.
var roomPrompts = map[string][]string{
	"poetry": {
		"Write a short poem about your childhood bedroom",
		"Describe the feeling of rain on your skin in verse",
		"Write a haiku about a moment of unexpected joy",
	},
	"debate": {
		"Argue for or against: 'Social media has made us more connected'",
		"Should AI art be allowed in human art competitions? Take a stance.",
		"Defend your position: Is work-from-home better for productivity?",
	},
	"personal": {
		"Describe your worst cooking disaster",
		"Tell about a time you embarrassed yourself in public",
		"What's your most irrational fear and why?",
	},
	"creative": {
		"Invent a new holiday and explain how it would be celebrated",
		"Write the opening of a story that starts with 'The last person on Earth...'",
		"Describe a world where gravity works backwards",
	},
}

var defaultPrompts = []string{
	"What's your favorite childhood memory?",
	"Describe a perfect day.",
	"What would you do with a million dollars?",
	"Tell me about a time you overcame a challenge.",
}

func fallbackPrompt(roomType string) string {
	prompts, ok := roomPrompts[roomType]
	if !ok || len(prompts) == 0 {
		prompts = defaultPrompts
	}
	return prompts[rand.IntN(len(prompts))]
}
