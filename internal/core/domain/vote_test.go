package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pollWithVoters(voters map[string][]string) Poll {
	p := Poll{ID: "p1", Question: "Best color?", Options: map[string]Option{}, CreatedAt: time.Now()}
	for id, vs := range voters {
		p.Options[id] = Option{Text: "opt " + id, Votes: len(vs), Voters: vs}
		p.TotalVotes += len(vs)
	}
	return p
}

func TestPlanVote_FirstVote(t *testing.T) {
	poll := pollWithVoters(map[string][]string{"0": {}, "1": {}})

	plan, err := PlanVote(poll, "0", "u1")
	require.NoError(t, err)

	assert.Equal(t, "", plan.PreviousOptionID)
	assert.False(t, plan.NoOp())
	assert.False(t, plan.Moved())
	assert.Equal(t, []FieldDelta{
		Increment(OptionVotesPath("0"), 1),
		SetAdd(OptionVotersPath("0"), "u1"),
		Increment(TotalVotesPath(), 1),
	}, plan.Deltas)
}

func TestPlanVote_MoveKeepsTotal(t *testing.T) {
	poll := pollWithVoters(map[string][]string{"0": {"u1"}, "1": {}})

	plan, err := PlanVote(poll, "1", "u1")
	require.NoError(t, err)

	assert.True(t, plan.Moved())
	assert.Equal(t, "0", plan.PreviousOptionID)
	assert.Equal(t, []FieldDelta{
		Increment(OptionVotesPath("0"), -1),
		SetRemove(OptionVotersPath("0"), "u1"),
		Increment(OptionVotesPath("1"), 1),
		SetAdd(OptionVotersPath("1"), "u1"),
	}, plan.Deltas)
}

func TestPlanVote_SameOptionIsNoOp(t *testing.T) {
	poll := pollWithVoters(map[string][]string{"0": {"u1"}, "1": {}})

	plan, err := PlanVote(poll, "0", "u1")
	require.NoError(t, err)
	assert.True(t, plan.NoOp())
	assert.Empty(t, plan.Deltas)
	assert.Equal(t, "0", plan.PreviousOptionID)
}

func TestPlanVote_Errors(t *testing.T) {
	poll := pollWithVoters(map[string][]string{"0": {}, "1": {}})

	_, err := PlanVote(poll, "0", "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = PlanVote(poll, "7", "u1")
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestVotePlan_ApplyToMatchesBackend(t *testing.T) {
	poll := pollWithVoters(map[string][]string{"0": {"u1", "u2"}, "1": {"u3"}})
	doc := NewPollDocument(poll.Question, "c", "C", []string{"a", "b"}, poll.CreatedAt)
	doc.ID = poll.ID
	doc.Options["0"].Voters = []string{"u1", "u2"}
	doc.Options["0"].Votes = intPtr(2)
	doc.Options["1"].Voters = []string{"u3"}
	doc.Options["1"].Votes = intPtr(1)
	doc.TotalVotes = intPtr(3)

	plan, err := PlanVote(poll, "1", "u1")
	require.NoError(t, err)

	local := plan.ApplyTo(poll)
	remote, err := ApplyDeltas(doc, plan.Deltas)
	require.NoError(t, err)

	assert.NoError(t, local.CheckInvariants())
	assert.Equal(t, 3, local.TotalVotes)
	assert.Equal(t, 3, *remote.TotalVotes)
	assert.Equal(t, local.Options["0"].Voters, remote.Normalize().Options["0"].Voters)
	assert.ElementsMatch(t, local.Options["1"].Voters, remote.Normalize().Options["1"].Voters)

	// the original poll is untouched
	assert.Equal(t, []string{"u1", "u2"}, poll.Options["0"].Voters)
}

func TestVotePlan_ApplyToIsIdempotentAfterFeed(t *testing.T) {
	poll := pollWithVoters(map[string][]string{"0": {}, "1": {}})
	plan, err := PlanVote(poll, "1", "u1")
	require.NoError(t, err)

	once := plan.ApplyTo(poll)
	twice := plan.ApplyTo(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, twice.TotalVotes)
	assert.NoError(t, twice.CheckInvariants())
}
