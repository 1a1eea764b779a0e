package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"campus-support/backend/ai"
	"campus-support/backend/internal/models"
	"campus-support/backend/internal/notify"
	"campus-support/backend/internal/repository"
	"campus-support/backend/internal/testdb"
	apperrors "campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOracle struct {
	mu         sync.Mutex
	configured bool
	gen        *ai.Generation
	err        error
	delay      time.Duration
	requests   []ai.GenerateRequest
}

func newFakeOracle(reply string) *fakeOracle {
	return &fakeOracle{
		configured: true,
		gen:        &ai.Generation{Reply: reply, Intent: "general", Confidence: 0.8},
	}
}

func (f *fakeOracle) Configured() bool { return f.configured }

func (f *fakeOracle) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.Generation, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	gen := *f.gen
	return &gen, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	err     error
	tickets []notify.TicketSummary
}

func (r *recordingNotifier) NotifyStaff(_ context.Context, t notify.TicketSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = append(r.tickets, t)
	return r.err
}

func (r *recordingNotifier) sent() []notify.TicketSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.TicketSummary(nil), r.tickets...)
}

type fixture struct {
	store         *repository.Store
	faqs          *FAQService
	conversations *ConversationService
	tickets       *TicketService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewStore(testdb.New(t))
	log := logger.Discard()
	return &fixture{
		store:         store,
		faqs:          NewFAQService(store, nil, log),
		conversations: NewConversationService(store),
		tickets:       NewTicketService(store, log),
	}
}

func (f *fixture) seedFAQs(t *testing.T, faqs ...models.FAQ) []models.FAQ {
	t.Helper()
	for i := range faqs {
		faqs[i].Active = true
		require.NoError(t, f.store.DB().Create(&faqs[i]).Error)
	}
	return faqs
}

// countTicketMessages counts a ticket's thread, optionally only system notes
func (f *fixture) countTicketMessages(t *testing.T, ticketID uint, systemOnly bool) int64 {
	t.Helper()
	tx := f.store.DB().Model(&models.TicketMessage{}).Where("ticket_id = ?", ticketID)
	if systemOnly {
		tx = tx.Where("is_system = ?", true)
	}
	var n int64
	require.NoError(t, tx.Count(&n).Error)
	return n
}

func assertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperrors.KindOf(err), "error: %v", err)
}

var (
	student = models.Actor{UserID: "student-1", Email: "student@school.test"}
	other   = models.Actor{UserID: "student-2"}
	agent   = models.Actor{UserID: "agent-1", Staff: true}
	guest   = models.Actor{}
)
