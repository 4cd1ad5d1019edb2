package catalog

import "coursecoach/internal/domain"

// defaultUnits is the built-in page map of the course source.
var defaultUnits = []domain.CourseUnit{
	{
		ID:        "0",
		Title:     "Orientation",
		StartPage: 7,
		EndPage:   15,
		LearningObjectives: []string{
			"Map the course sequence to the specific craft skill you will practice each week.",
			"Use the unit vocabulary to diagnose what is working and what still needs attention.",
			"Set a clear workflow: draft, revise, and reflect on one improvement before moving forward.",
		},
	},
	{
		ID:        "1",
		Title:     "Narrating",
		StartPage: 16,
		EndPage:   34,
		LearningObjectives: []string{
			"Anchor each draft in one focal perspective and keep it stable across the scene.",
			"Balance what the reader sees, hears, and knows at each moment.",
			"Maintain orientation through concrete scene grounding instead of backstory explanation.",
		},
	},
	{
		ID:        "2",
		Title:     "Flaubert and Modern Narrative",
		StartPage: 35,
		EndPage:   39,
		LearningObjectives: []string{
			"Track when voice narrows or expands to create distance and emotional pressure.",
			"Prioritize scene-based movement over summary so revision decisions stay concrete.",
			"Use paragraph shape to make cause, reaction, and consequence visible.",
		},
	},
	{
		ID:        "3",
		Title:     "Flaubert and the Rise of the Flaneur",
		StartPage: 40,
		EndPage:   46,
		LearningObjectives: []string{
			"Build observational prose that records action before interpretation.",
			"Let detail and movement carry character judgment instead of abstract labels.",
			"Keep attention directed even when the scene perspective drifts.",
		},
	},
	{
		ID:        "4",
		Title:     "Detail",
		StartPage: 47,
		EndPage:   63,
		LearningObjectives: []string{
			"Choose details that perform a specific narrative job.",
			"Remove descriptive weight that does not change tension or decision.",
			"Attach setting and objects directly to character pressure and motive.",
		},
	},
	{
		ID:        "5",
		Title:     "Character",
		StartPage: 64,
		EndPage:   84,
		LearningObjectives: []string{
			"Reveal character through choice, gesture, and response in pressure points.",
			"Replace explanatory traits with observable contradiction.",
			"Use voice and detail to make motivation feel earned.",
		},
	},
	{
		ID:        "6",
		Title:     "A Brief History of Consciousness",
		StartPage: 85,
		EndPage:   99,
		LearningObjectives: []string{
			"Track shifts in awareness from sensation to thought to decision.",
			"Keep interior perspective legible through line breaks, rhythm, and focus words.",
			"Make each cognitive turn in a sentence create a clear change of direction.",
		},
	},
	{
		ID:        "7",
		Title:     "Form",
		StartPage: 100,
		EndPage:   108,
		LearningObjectives: []string{
			"Shape scene order to escalate expectation and release.",
			"Use transitions to control time, causality, and point of view.",
			"Experiment with rearrangement while preserving narrative clarity.",
		},
	},
	{
		ID:        "8",
		Title:     "Sympathy and Complexity",
		StartPage: 109,
		EndPage:   114,
		LearningObjectives: []string{
			"Generate sympathy through behavior and consequence, not moral explanation.",
			"Introduce conflict inside the emotion of a scene, not as editorial commentary.",
			"Hold compassion and uncertainty together in the same scene.",
		},
	},
	{
		ID:        "9",
		Title:     "Language",
		StartPage: 115,
		EndPage:   130,
		LearningObjectives: []string{
			"Use sentence tempo to control urgency, delay, and tonal distance.",
			"Differentiate narration, character voice, and implied perspective with diction.",
			"Keep imagery focused and reusable across revisions.",
		},
	},
	{
		ID:        "10",
		Title:     "Dialogue",
		StartPage: 131,
		EndPage:   135,
		LearningObjectives: []string{
			"Write dialogue that shifts power, reveals motive, or changes stakes.",
			"Use interruption, overlap, and silence as functional scene decisions.",
			"Root every exchange in physical detail and immediate tension.",
		},
	},
	{
		ID:        "11",
		Title:     "Truth, Convention, Realism",
		StartPage: 136,
		EndPage:   149,
		LearningObjectives: []string{
			"Balance factual fact and emotional truth without overexplaining either.",
			"Select convention as a deliberate structural choice, not a default crutch.",
			"Earn trust through precise, selective revelation across scenes.",
		},
	},
}
