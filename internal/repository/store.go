package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Store groups the repositories over one connection or transaction
type Store struct {
	db  *gorm.DB
	now func() time.Time

	Conversations *ConversationRepository
	FAQs          *FAQRepository
	Tickets       *TicketRepository
}

// NewStore creates a store over db
func NewStore(db *gorm.DB) *Store {
	return newStore(db, time.Now)
}

func newStore(db *gorm.DB, now func() time.Time) *Store {
	return &Store{
		db:            db,
		now:           now,
		Conversations: &ConversationRepository{db: db, now: now},
		FAQs:          &FAQRepository{db: db},
		Tickets:       &TicketRepository{db: db},
	}
}

// WithClock returns a store that stamps messages using now
func (s *Store) WithClock(now func() time.Time) *Store {
	return newStore(s.db, now)
}

// DB exposes the underlying handle for health checks
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn with a store bound to a single transaction.
// Every query inside fn must go through the tx store.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStore(tx, s.now))
	})
}
