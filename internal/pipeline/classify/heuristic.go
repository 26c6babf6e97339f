// internal/pipeline/classify/heuristic.go
package classify

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"portlink-orchestrator/internal/models"
)

// ClassifyHeuristic scores the message against the per-domain keyword and
// pattern tables. Pattern hits outweigh bare keyword hits. Confidence is
// min(0.9, 0.5 + 0.4*winning/total); a zero-score tie yields unknown at 0.3.
func ClassifyHeuristic(text string, now time.Time) *models.IntentClassification {
	lower := strings.ToLower(text)
	words := tokenize(lower)

	scores := make(map[models.Intent]int, len(domainPatterns))
	signals := make(map[models.Intent][]string, len(domainPatterns))
	total := 0

	for _, domain := range domainPatterns {
		score := 0
		for _, kw := range domain.keywords {
			if words[kw] {
				score += keywordWeight
				signals[domain.intent] = append(signals[domain.intent], "keyword:"+kw)
			}
		}
		for _, p := range domain.patterns {
			if p.pattern.MatchString(text) {
				score += patternWeight
				signals[domain.intent] = append(signals[domain.intent], "pattern:"+p.name)
			}
		}
		scores[domain.intent] = score
		total += score
	}

	winner, second := rank(scores)
	if scores[winner] == 0 {
		return &models.IntentClassification{
			Intent:     models.IntentUnknown,
			Confidence: 0.3,
			Entities:   ExtractEntities(text, now),
			Reasoning:  "no domain signals matched",
			Source:     "heuristic",
		}
	}

	confidence := 0.5 + 0.4*float64(scores[winner])/float64(total)
	if confidence > 0.9 {
		confidence = 0.9
	}

	result := &models.IntentClassification{
		Intent:     winner,
		Confidence: confidence,
		Entities:   ExtractEntities(text, now),
		Reasoning:  fmt.Sprintf("matched %s", strings.Join(signals[winner], ", ")),
		Source:     "heuristic",
	}
	if scores[second] > 0 {
		result.SecondaryIntent = second
	}
	return result
}

// rank returns the intents ordered by score. Ties resolve in the fixed
// domainPatterns order so classification stays deterministic.
func rank(scores map[models.Intent]int) (winner, second models.Intent) {
	winner = domainPatterns[0].intent
	second = domainPatterns[1].intent
	if scores[second] > scores[winner] {
		winner, second = second, winner
	}
	return winner, second
}

// tokenize splits the lowercased message into a word set, dropping
// punctuation so "terminals?" counts as "terminals".
func tokenize(lower string) map[string]bool {
	words := make(map[string]bool)
	for _, field := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		words[field] = true
	}
	return words
}
