package ai

// styleCloak pairs an instruction shown to the human player with the
// generation tweak applied to the AI, nudging both sides toward the
// same register so style alone doesn't give the game away.
type styleCloak struct {
	HumanInstruction string
	AIModification   string
}

var styleCloaks = map[string]styleCloak{
	"corporate_jargon": {
		HumanInstruction: "Write like a middle manager with buzzwords",
		AIModification:   "Add hesitation markers: 'um', 'you know', 'I think'",
	},
	"teenager_text": {
		HumanInstruction: "Write like you're texting your best friend",
		AIModification:   "Add typos and autocorrect 'mistakes'",
	},
	"academic_paper": {
		HumanInstruction: "Write in formal academic style",
		AIModification:   "Add personal asides and imperfect citations",
	},
	"casual_conversation": {
		HumanInstruction: "Write as if you're having a casual chat",
		AIModification:   "Add informal language and occasional tangents",
	},
	"technical_expert": {
		HumanInstruction: "Write with technical precision and jargon",
		AIModification:   "Occasionally oversimplify or use analogies",
	},
	"storyteller": {
		HumanInstruction: "Write in a narrative, story-telling style",
		AIModification:   "Add personal anecdotes and emotional touches",
	},
	"minimalist": {
		HumanInstruction: "Be extremely brief and to the point",
		AIModification:   "Add slight elaboration beyond necessary",
	},
	"enthusiastic": {
		HumanInstruction: "Write with lots of enthusiasm and excitement!",
		AIModification:   "Tone down slightly with occasional hesitation",
	},
}

var cloakNames = func() []string {
	names := make([]string, 0, len(styleCloaks))
	for name := range styleCloaks {
		names = append(names, name)
	}
	return names
}()
