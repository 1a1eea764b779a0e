package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"campus-support/backend/internal/models"
	"campus-support/backend/internal/repository"
	apperrors "campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/logger"
	"campus-support/backend/shared/observability"

	"gopkg.in/yaml.v3"
)

// FAQService answers knowledge-base lookups
type FAQService struct {
	store   *repository.Store
	metrics *observability.Metrics
	log     *logger.Logger
}

// NewFAQService creates a new FAQService
func NewFAQService(store *repository.Store, metrics *observability.Metrics, log *logger.Logger) *FAQService {
	return &FAQService{store: store, metrics: metrics, log: log}
}

// Search ranks matching active FAQs and counts a use of the top result
func (s *FAQService) Search(ctx context.Context, query, category string) ([]RankedFAQ, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.InvalidArgument("Search query is required")
	}

	candidates, err := s.store.FAQs.Search(ctx, query, strings.TrimSpace(category))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("search faqs: %w", err))
	}
	ranked := Rank(query, candidates)
	s.metrics.FAQSearch(ctx, len(ranked))

	if len(ranked) > 0 {
		if err := s.store.FAQs.IncrementUsage(ctx, ranked[0].ID); err != nil {
			s.log.WithContext(ctx).LogError(err, "Failed to record FAQ usage", "faq_id", ranked[0].ID)
		} else {
			ranked[0].UsageCount++
		}
	}
	return ranked, nil
}

// Suggest returns up to limit FAQs relevant to a free-text message, taking
// the best match for each significant term. It has no side effects.
func (s *FAQService) Suggest(ctx context.Context, message string, limit int) ([]models.FAQ, error) {
	if limit <= 0 {
		return nil, nil
	}
	seen := make(map[uint]bool)
	var out []models.FAQ
	for _, term := range significantTerms(message) {
		candidates, err := s.store.FAQs.Search(ctx, term, "")
		if err != nil {
			return nil, fmt.Errorf("suggest faqs: %w", err)
		}
		for _, r := range Rank(term, candidates) {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r.FAQ)
			break
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// RecordFeedback counts a helpful or not-helpful vote
func (s *FAQService) RecordFeedback(ctx context.Context, faqID uint, helpful bool) error {
	if faqID == 0 {
		return apperrors.InvalidArgument("faqId is required")
	}
	if err := s.store.FAQs.RecordFeedback(ctx, faqID, helpful); err != nil {
		return toAppError(err, "FAQ not found")
	}
	return nil
}

// List returns active FAQs, optionally in one category
func (s *FAQService) List(ctx context.Context, category string) ([]models.FAQ, error) {
	faqs, err := s.store.FAQs.List(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return faqs, nil
}

// Categories returns the categories that have active FAQs
func (s *FAQService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.store.FAQs.Categories(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return categories, nil
}

// SeedFAQ is one entry of the seed file
type SeedFAQ struct {
	Category string   `yaml:"category"`
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	Keywords []string `yaml:"keywords"`
	Inactive bool     `yaml:"inactive"`
}

type seedFile struct {
	FAQs []SeedFAQ `yaml:"faqs"`
}

// LoadSeedFile reads FAQs from a YAML file
func LoadSeedFile(path string) ([]SeedFAQ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return f.FAQs, nil
}

// Seed upserts entries by question
func (s *FAQService) Seed(ctx context.Context, entries []SeedFAQ) (created, updated int, err error) {
	for i, e := range entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return created, updated, fmt.Errorf("seed entry %d: question and answer are required", i+1)
		}
		category := strings.TrimSpace(e.Category)
		if category == "" {
			category = "general"
		}
		isNew, err := s.store.FAQs.UpsertByQuestion(ctx, &models.FAQ{
			Category: category,
			Question: strings.TrimSpace(e.Question),
			Answer:   strings.TrimSpace(e.Answer),
			Keywords: e.Keywords,
			Active:   !e.Inactive,
		})
		if err != nil {
			return created, updated, fmt.Errorf("seed entry %d: %w", i+1, err)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "could": true, "does": true,
	"from": true, "have": true, "help": true, "here": true, "please": true,
	"should": true, "that": true, "their": true, "there": true, "they": true,
	"this": true, "what": true, "when": true, "where": true, "which": true,
	"with": true, "would": true, "your": true, "want": true, "need": true,
}

// significantTerms splits a message into unique lower-case words of at
// least four letters that are not stopwords, in order of appearance
func significantTerms(message string) []string {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var terms []string
	for _, w := range words {
		if len([]rune(w)) < 4 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}
