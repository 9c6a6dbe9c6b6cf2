package service

import (
	"strings"

	"github.com/codeshare-labs/codeshare-api/internal/models"
)

const (
	reviewBaseScore     = 80
	reviewGeneralScore  = 90
	reviewPassThreshold = 70
	reviewMaxScore      = 100
	reviewLengthBonus   = 5
	reviewLanguageBonus = 5
	reviewCommentBonus  = 5
	reviewMinCodeLength = 20
)

// promptRule awards a fixed bonus when the lowercase question prompt mentions
// any keyword of its group. Each group contributes once, not per occurrence.
type promptRule struct {
	topic    string
	keywords []string
	delta    int
}

var promptRules = []promptRule{
	{topic: "aggregation", keywords: []string{"sum", "array", "aggregate", "total"}, delta: 15},
	{topic: "iteration", keywords: []string{"loop", "iterate", "iteration", "repeat", "while"}, delta: 15},
	{topic: "primality", keywords: []string{"prime"}, delta: 15},
	{topic: "ordering", keywords: []string{"sort", "order"}, delta: 15},
}

var recognizedLanguages = map[string]struct{}{
	"python":     {},
	"javascript": {},
	"typescript": {},
	"java":       {},
	"go":         {},
	"c":          {},
	"cpp":        {},
	"csharp":     {},
	"ruby":       {},
	"rust":       {},
	"php":        {},
	"kotlin":     {},
	"swift":      {},
}

var commentMarkers = []string{"//", "#", "/*", "--"}

var (
	emptyCodeSuggestions = []string{
		"Write some code before sharing it with the class",
	}
	generalSuggestions = []string{
		"Link your submission to the active question to get targeted feedback",
		"Question-linked submissions are scored against the prompt",
	}
	passSuggestions = []string{
		"Nice work! Consider adding a comment explaining your approach",
		"Try an alternative solution and compare the two",
	}
	correctiveSuggestions = []string{
		"Re-read the question prompt and check that your code addresses it",
		"Cover the key terms mentioned in the prompt",
		"Test your solution against a small example before sharing",
	}
)

// ReviewCode scores a submission against an optional question prompt. It is a
// pure function with no failure states: identical inputs always yield an
// identical Review. An empty questionText means the submission is unlinked.
func ReviewCode(code, language, questionText string) models.Review {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return models.Review{
			IsCorrect:   false,
			Score:       0,
			Feedback:    "no code provided",
			Suggestions: append([]string(nil), emptyCodeSuggestions...),
		}
	}

	if questionText == "" {
		return models.Review{
			IsCorrect:   true,
			Score:       reviewGeneralScore,
			Feedback:    "general submission received",
			Suggestions: append([]string(nil), generalSuggestions...),
		}
	}

	prompt := strings.ToLower(questionText)
	score := reviewBaseScore
	var topics []string

	for _, rule := range promptRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(prompt, keyword) {
				score += rule.delta
				topics = append(topics, rule.topic)
				break
			}
		}
	}

	if _, ok := recognizedLanguages[strings.ToLower(language)]; ok {
		score += reviewLanguageBonus
	}

	if len(trimmed) > reviewMinCodeLength {
		score += reviewLengthBonus
	}

	for _, marker := range commentMarkers {
		if strings.Contains(code, marker) {
			score += reviewCommentBonus
			break
		}
	}

	if score > reviewMaxScore {
		score = reviewMaxScore
	}

	correct := score >= reviewPassThreshold

	feedback := "submission reviewed against the question prompt"
	if len(topics) > 0 {
		feedback = "submission addresses " + strings.Join(topics, ", ")
	}

	suggestions := correctiveSuggestions
	if correct {
		suggestions = passSuggestions
	}

	return models.Review{
		IsCorrect:   correct,
		Score:       score,
		Feedback:    feedback,
		Suggestions: append([]string(nil), suggestions...),
	}
}
