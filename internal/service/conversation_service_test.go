package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"campus-support/backend/internal/models"
	apperrors "campus-support/backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	minted, err := f.conversations.EnsureSession(ctx, "", guest)
	require.NoError(t, err)
	assert.NotEmpty(t, minted.ID)
	assert.Nil(t, minted.UserID)

	owned, err := f.conversations.EnsureSession(ctx, "session-1", student)
	require.NoError(t, err)
	require.NotNil(t, owned.UserID)
	assert.Equal(t, student.UserID, *owned.UserID)

	// The owner is fixed at creation.
	again, err := f.conversations.EnsureSession(ctx, "session-1", other)
	require.NoError(t, err)
	assert.Equal(t, student.UserID, *again.UserID)

	_, err = f.conversations.EnsureSession(ctx, "bad id with spaces", guest)
	assertKind(t, err, apperrors.KindInvalidArgument)
}

func TestAppendMessageFirstMustBeUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.conversations.EnsureSession(ctx, "s1", guest)
	require.NoError(t, err)

	_, err = f.conversations.AppendMessage(ctx, "s1", models.RoleAssistant, "hello", nil)
	assertKind(t, err, apperrors.KindInvalidArgument)

	history, err := f.conversations.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.conversations.AppendMessage(ctx, "missing", models.RoleUser, "hello", nil)
	assertKind(t, err, apperrors.KindNotFound)

	_, err = f.conversations.AppendMessage(ctx, "s1", models.Role("system"), "hello", nil)
	assertKind(t, err, apperrors.KindInvalidArgument)
}

func TestAppendMessageOrderingWithFrozenClock(t *testing.T) {
	f := newFixture(t)
	frozen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	conversations := NewConversationService(f.store.WithClock(func() time.Time { return frozen }))
	ctx := context.Background()
	_, err := conversations.EnsureSession(ctx, "s1", guest)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		_, err := conversations.AppendMessage(ctx, "s1", role, "m", nil)
		require.NoError(t, err)
	}

	history, err := conversations.History(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i := range history {
		assert.Equal(t, i+1, history[i].Seq)
		if i > 0 {
			assert.True(t, history[i].CreatedAt.After(history[i-1].CreatedAt), "message %d not after %d", i, i-1)
		}
	}

	session, err := conversations.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, session.MessageCount)
	assert.True(t, session.LastMessageAt.Equal(history[4].CreatedAt))
}

func TestAppendMessageConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.conversations.EnsureSession(ctx, "s1", guest)
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.conversations.AppendMessage(ctx, "s1", models.RoleUser, "hi", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := f.conversations.History(ctx, "s1", 50)
	require.NoError(t, err)
	require.Len(t, history, writers)
	for i, m := range history {
		assert.Equal(t, i+1, m.Seq)
	}
}

func TestHistoryDefaultLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.conversations.EnsureSession(ctx, "s1", guest)
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		_, err := f.conversations.AppendMessage(ctx, "s1", models.RoleUser, "m", nil)
		require.NoError(t, err)
	}

	history, err := f.conversations.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, DefaultHistoryLimit)
	assert.Equal(t, 3, history[0].Seq)
	assert.Equal(t, 12, history[len(history)-1].Seq)

	none, err := f.conversations.History(ctx, "unknown", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSessionHistoryVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.conversations.EnsureSession(ctx, "owned", student)
	require.NoError(t, err)
	_, err = f.conversations.EnsureSession(ctx, "anon", guest)
	require.NoError(t, err)
	_, err = f.conversations.AppendMessage(ctx, "owned", models.RoleUser, "hi", nil)
	require.NoError(t, err)

	_, msgs, err := f.conversations.SessionHistory(ctx, "owned", student, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, _, err = f.conversations.SessionHistory(ctx, "owned", other, 10)
	assertKind(t, err, apperrors.KindForbidden)

	_, _, err = f.conversations.SessionHistory(ctx, "owned", agent, 10)
	require.NoError(t, err)

	_, msgs, err = f.conversations.SessionHistory(ctx, "anon", other, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, _, err = f.conversations.SessionHistory(ctx, "nope", student, 10)
	assertKind(t, err, apperrors.KindNotFound)
}
