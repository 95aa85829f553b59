package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

func intPtr(v int) *int { return &v }

func driftingDoc(id string, stored int) *domain.PollDocument {
	doc := domain.NewPollDocument("Drifting?", "c", "C", []string{"a", "b"}, time.Now())
	doc.ID = id
	doc.Options["0"].Votes = intPtr(2)
	doc.Options["0"].Voters = []string{"u1", "u2"}
	doc.TotalVotes = intPtr(stored)
	return doc
}

func TestAuditTallies_ReportOnly(t *testing.T) {
	backend := newStubBackend()
	backend.Put(driftingDoc("healthy", 2))
	backend.Put(driftingDoc("high", 5))
	backend.Put(driftingDoc("low", 1))

	reports, err := NewAuditService(backend, logging.Discard()).AuditTallies(context.Background(), false)
	require.NoError(t, err)

	byID := map[string]domain.TallyReport{}
	for _, r := range reports {
		byID[r.PollID] = r
	}
	assert.True(t, byID["healthy"].Healthy())
	assert.Equal(t, 3, byID["high"].Drift)
	assert.Equal(t, -1, byID["low"].Drift)
	assert.False(t, byID["high"].Repaired)
	assert.Equal(t, int32(0), backend.updates.Load())
}

func TestAuditTallies_Repair(t *testing.T) {
	backend := newStubBackend()
	backend.Put(driftingDoc("healthy", 2))
	backend.Put(driftingDoc("high", 5))
	backend.Put(driftingDoc("low", 1))

	reports, err := NewAuditService(backend, logging.Discard()).AuditTallies(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, reports, 3)
	assert.Equal(t, int32(2), backend.updates.Load())

	for _, id := range []string{"healthy", "high", "low"} {
		doc, err := backend.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 0, doc.TotalVotesDrift(), id)
		assert.Equal(t, 2, *doc.TotalVotes, id)
	}
}

func TestAuditTallies_RepairFailure(t *testing.T) {
	backend := newStubBackend()
	backend.Put(driftingDoc("high", 5))
	backend.failUpdate = errBackendDown

	reports, err := NewAuditService(backend, logging.Discard()).AuditTallies(context.Background(), true)
	assert.ErrorIs(t, err, errBackendDown)
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Repaired)
}

func TestAuditTallies_VoterMismatch(t *testing.T) {
	backend := newStubBackend()
	doc := driftingDoc("dup", 2)
	doc.Options["1"].Voters = []string{"u1"}
	doc.Options["1"].Votes = intPtr(1)
	doc.TotalVotes = intPtr(3)
	backend.Put(doc)

	reports, err := NewAuditService(backend, logging.Discard()).AuditTallies(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].VoterMismatch)
	assert.Equal(t, 0, reports[0].Drift)
}
