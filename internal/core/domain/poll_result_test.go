package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 0, Percentage(3, 0))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 100, Percentage(4, 4))
}

func TestPoll_Results(t *testing.T) {
	p := pollWithVoters(map[string][]string{"0": {"u1", "u2"}, "1": {"u3"}, "2": {}})

	res := p.Results()

	assert.Equal(t, 3, res.TotalVotes)
	assert.Equal(t, []OptionResult{
		{OptionID: "0", Text: "opt 0", Votes: 2, Percentage: 67},
		{OptionID: "1", Text: "opt 1", Votes: 1, Percentage: 33},
		{OptionID: "2", Text: "opt 2", Votes: 0, Percentage: 0},
	}, res.Options)
}

func TestTallyReport_Healthy(t *testing.T) {
	assert.True(t, TallyReport{PollID: "p"}.Healthy())
	assert.False(t, TallyReport{PollID: "p", Drift: -1}.Healthy())
	assert.False(t, TallyReport{PollID: "p", VoterMismatch: true}.Healthy())
}
