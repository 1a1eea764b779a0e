package service

import (
	"math"
	"sort"
	"strings"

	"campus-support/backend/internal/models"
)

// Ranking weights
const (
	scoreQuestionMatch = 10.0
	scoreKeywordMatch  = 5.0
	scoreAnswerMatch   = 3.0
	maxUsageBonus      = 2.0
	helpfulWeight      = 2.0
)

// RankedFAQ is an FAQ with its relevance score
type RankedFAQ struct {
	models.FAQ
	Score float64 `json:"score"`
}

// Score computes the relevance of faq for the query
func Score(query string, faq *models.FAQ) float64 {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return 0
	}

	var score float64
	if strings.Contains(strings.ToLower(faq.Question), needle) {
		score += scoreQuestionMatch
	}
	for _, kw := range faq.Keywords {
		if strings.Contains(strings.ToLower(kw), needle) {
			score += scoreKeywordMatch
			break
		}
	}
	if strings.Contains(strings.ToLower(faq.Answer), needle) {
		score += scoreAnswerMatch
	}
	score += math.Min(float64(faq.UsageCount)/10, maxUsageBonus)
	score += faq.HelpfulRatio() * helpfulWeight
	return score
}

// Rank orders candidates by descending score. Equal scores keep the
// candidates' order.
func Rank(query string, candidates []models.FAQ) []RankedFAQ {
	ranked := make([]RankedFAQ, 0, len(candidates))
	for i := range candidates {
		ranked = append(ranked, RankedFAQ{FAQ: candidates[i], Score: Score(query, &candidates[i])})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
