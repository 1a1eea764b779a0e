package repository

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"campus-support/backend/internal/models"

	"gorm.io/gorm"
)

// FAQRepository reads FAQs and maintains their counters
type FAQRepository struct {
	db *gorm.DB
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns active FAQs whose question, answer or any keyword contains
// query case-insensitively, in id order. An empty category matches all.
func (r *FAQRepository) Search(ctx context.Context, query, category string) ([]models.FAQ, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	tx := r.db.WithContext(ctx).Where("active = ?", true)
	if category != "" {
		tx = tx.Where("category = ?", category)
	}

	// Keywords are stored as JSON text; characters JSON escapes would not
	// match there, so such queries skip the SQL prefilter. SQLite's LOWER
	// only folds ASCII, so non-ASCII needles skip it too.
	if needle != "" && isASCII(needle) && !strings.ContainsAny(needle, "\"\\<>&") {
		pattern := "%" + likeEscaper.Replace(needle) + "%"
		tx = tx.Where(
			`LOWER(question) LIKE ? ESCAPE '\' OR LOWER(answer) LIKE ? ESCAPE '\' OR LOWER(keywords) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}

	var candidates []models.FAQ
	if err := tx.Order("id ASC").Find(&candidates).Error; err != nil {
		return nil, err
	}

	matched := candidates[:0]
	for _, faq := range candidates {
		if Matches(&faq, needle) {
			matched = append(matched, faq)
		}
	}
	return matched, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Matches applies the retrieval predicate to a single FAQ. needle must be
// lower-cased.
func Matches(faq *models.FAQ, needle string) bool {
	if needle == "" {
		return false
	}
	if strings.Contains(strings.ToLower(faq.Question), needle) ||
		strings.Contains(strings.ToLower(faq.Answer), needle) {
		return true
	}
	for _, kw := range faq.Keywords {
		if strings.Contains(strings.ToLower(kw), needle) {
			return true
		}
	}
	return false
}

// List returns active FAQs in a category (all when empty)
func (r *FAQRepository) List(ctx context.Context, category string) ([]models.FAQ, error) {
	tx := r.db.WithContext(ctx).Where("active = ?", true)
	if category != "" {
		tx = tx.Where("category = ?", category)
	}
	var faqs []models.FAQ
	err := tx.Order("category ASC, id ASC").Find(&faqs).Error
	return faqs, err
}

// Categories returns the distinct categories of active FAQs
func (r *FAQRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.FAQ{}).
		Where("active = ?", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

// Get returns gorm.ErrRecordNotFound for unknown ids
func (r *FAQRepository) Get(ctx context.Context, id uint) (*models.FAQ, error) {
	var faq models.FAQ
	if err := r.db.WithContext(ctx).First(&faq, id).Error; err != nil {
		return nil, err
	}
	return &faq, nil
}

// IncrementUsage bumps usage_count in SQL so concurrent searches never lose counts
func (r *FAQRepository) IncrementUsage(ctx context.Context, id uint) error {
	return r.increment(ctx, id, "usage_count")
}

// RecordFeedback bumps exactly one of the feedback counters
func (r *FAQRepository) RecordFeedback(ctx context.Context, id uint, helpful bool) error {
	column := "not_helpful_count"
	if helpful {
		column = "helpful_count"
	}
	return r.increment(ctx, id, column)
}

func (r *FAQRepository) increment(ctx context.Context, id uint, column string) error {
	res := r.db.WithContext(ctx).
		Model(&models.FAQ{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertByQuestion inserts faq or refreshes the row with the same question.
// Counters of existing rows are preserved.
func (r *FAQRepository) UpsertByQuestion(ctx context.Context, faq *models.FAQ) (created bool, err error) {
	db := r.db.WithContext(ctx)
	var existing models.FAQ
	err = db.Where("question = ?", faq.Question).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return true, db.Create(faq).Error
	case err != nil:
		return false, err
	}

	faq.ID = existing.ID
	err = db.Model(&existing).Select("category", "answer", "keywords", "active").Updates(faq).Error
	return false, err
}
