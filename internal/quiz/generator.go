package quiz

import (
	"fmt"
	"math/rand"
	"strings"

	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
)

type template struct {
	text          string
	options       []string
	correctAnswer int
	fromTitle     bool
}

// titleRule maps title keywords to a topic option set. The first option is the right answer.
type titleRule struct {
	keywords []string
	options  []string
}

var titleRules = []titleRule{
	{
		keywords: []string{"blockchain", "crypto", "web3"},
		options:  []string{"Blockchain fundamentals", "Cryptocurrency applications", "Web3 development", "Digital asset management"},
	},
	{
		keywords: []string{"python", "javascript", "coding"},
		options:  []string{"Programming fundamentals", "Algorithm development", "Software architecture", "Data structures"},
	},
	{
		keywords: []string{"finance", "investment", "trading"},
		options:  []string{"Financial principles", "Investment strategies", "Market analysis", "Risk management"},
	},
	{
		keywords: []string{"array", "tree", "graph", "dynamic programming", "linked list", "string"},
		options:  []string{"Data structures and algorithms", "Database administration", "UI design", "Network security"},
	},
}

var fallbackTitleOptions = []string{
	"Practical applications of the subject",
	"Theoretical foundations",
	"Advanced techniques",
	"Industry best practices",
}

var commonTemplates = []template{
	{
		text: "What's the main benefit of completing this learning task?",
		options: []string{
			"Earning $TASK tokens",
			"Gaining practical knowledge and skills",
			"Advancing in the platform level system",
			"All of the above",
		},
		correctAnswer: 3,
	},
	{
		text: "How does InsightQuest verify your learning progress?",
		options: []string{
			"Through manual review by moderators",
			"Using quiz assessments like this one",
			"By tracking time spent on resources",
			"Using blockchain verification",
		},
		correctAnswer: 1,
	},
}

var typeTemplates = map[task.Type][]template{
	task.TypeVideo: {
		{
			text: "What is the best practice when watching educational videos?",
			options: []string{
				"Watch at 2x speed to save time",
				"Take notes while watching",
				"Just watch passively and absorb information",
				"Skip to the important parts only",
			},
			correctAnswer: 1,
		},
		{text: "Based on the video title %q, which topic is likely covered?", fromTitle: true},
		{
			text: "What should you do after watching an educational video?",
			options: []string{
				"Immediately watch another video",
				"Take a test to verify understanding",
				"Apply what you've learned through practice",
				"Share the video with friends",
			},
			correctAnswer: 2,
		},
	},
	task.TypeCourse: {
		{
			text: "What's the most effective way to complete an online course?",
			options: []string{
				"Skip through sections you already know",
				"Complete all exercises and assignments",
				"Read the summaries only",
				"Focus only on the final assessment",
			},
			correctAnswer: 1,
		},
		{text: "What skills might you gain from this course %q?", fromTitle: true},
		{
			text: "How does completing courses benefit your InsightQuest profile?",
			options: []string{
				"It only provides tokens",
				"It increases your level and reputation",
				"It allows you to create your own courses",
				"It has no impact on your profile",
			},
			correctAnswer: 1,
		},
	},
	task.TypeLeetcode: {
		{
			text: "What should you do before writing code for a new problem?",
			options: []string{
				"Start typing and fix bugs later",
				"Work through examples and edge cases first",
				"Look up the solution immediately",
				"Optimize before you have a working answer",
			},
			correctAnswer: 1,
		},
		{text: "Which topic does the problem %q most likely exercise?", fromTitle: true},
		{
			text: "After an accepted submission, what helps you learn the most?",
			options: []string{
				"Moving on right away",
				"Resubmitting the same code",
				"Reviewing time and space complexity and other approaches",
				"Deleting the solution",
			},
			correctAnswer: 2,
		},
	},
}

// OptionsForTitle returns the first matching rule's options, or the fallback set.
func OptionsForTitle(title string) []string {
	lower := strings.ToLower(title)
	for _, rule := range titleRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return append([]string(nil), rule.options...)
			}
		}
	}
	return append([]string(nil), fallbackTitleOptions...)
}

func shuffle[T any](rng *rand.Rand, items []T) []T {
	out := append([]T(nil), items...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func (tpl template) build(rng *rand.Rand, title string) quiz.Question {
	if !tpl.fromTitle {
		return quiz.Question{
			Question:      tpl.text,
			Options:       append([]string(nil), tpl.options...),
			CorrectAnswer: tpl.correctAnswer,
		}
	}

	options := OptionsForTitle(title)
	answer := options[0]
	options = shuffle(rng, options)

	correct := 0
	for i, opt := range options {
		if opt == answer {
			correct = i
			break
		}
	}

	return quiz.Question{
		Question:      fmt.Sprintf(tpl.text, title),
		Options:       options,
		CorrectAnswer: correct,
	}
}

// GenerateQuestions builds the pool for t, shuffles it and keeps at most
// QuestionsPerSession, re-indexed from 0.
func GenerateQuestions(rng *rand.Rand, t *task.Task) []quiz.Question {
	pool := make([]quiz.Question, 0, len(commonTemplates)+3)
	for _, tpl := range typeTemplates[t.Type] {
		pool = append(pool, tpl.build(rng, t.Title))
	}
	for _, tpl := range commonTemplates {
		pool = append(pool, tpl.build(rng, t.Title))
	}

	pool = shuffle(rng, pool)
	if len(pool) > quiz.QuestionsPerSession {
		pool = pool[:quiz.QuestionsPerSession]
	}
	for i := range pool {
		pool[i].ID = i
	}

	return pool
}
