package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusTransitions(t *testing.T) {
	all := []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed}
	allowed := map[TicketStatus][]TicketStatus{
		TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
		TicketStatusInProgress: {TicketStatusResolved, TicketStatusClosed},
		TicketStatusResolved:   {TicketStatusClosed, TicketStatusOpen},
		TicketStatusClosed:     {TicketStatusOpen},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, TicketStatus("pending").CanTransitionTo(TicketStatusOpen))
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, TicketPriorityUrgent.Valid())
	assert.False(t, TicketPriority("critical").Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
	assert.False(t, TicketStatus("").Valid())
}

func TestValidSessionID(t *testing.T) {
	assert.True(t, ValidSessionID("sess-1"))
	assert.True(t, ValidSessionID("a.b:c_d"))
	assert.False(t, ValidSessionID(""))
	assert.False(t, ValidSessionID("has space"))
	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ValidSessionID(string(long)))
}

func TestHelpfulRatio(t *testing.T) {
	assert.Equal(t, 0.0, (&FAQ{}).HelpfulRatio())
	assert.InDelta(t, 0.75, (&FAQ{HelpfulCount: 3, NotHelpfulCount: 1}).HelpfulRatio(), 1e-9)
}

func TestTicketOwnedBy(t *testing.T) {
	owner := "u1"
	ticket := &Ticket{UserID: &owner}
	assert.True(t, ticket.OwnedBy("u1"))
	assert.False(t, ticket.OwnedBy("u2"))
	assert.False(t, (&Ticket{}).OwnedBy(""))
}
