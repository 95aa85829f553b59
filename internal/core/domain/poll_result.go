package domain

import "math"

type OptionResult struct {
	OptionID   string `json:"optionId"`
	Text       string `json:"text"`
	Votes      int    `json:"votes"`
	Percentage int    `json:"percentage"`
}

type PollResults struct {
	PollID     string         `json:"pollId"`
	Question   string         `json:"question"`
	TotalVotes int            `json:"totalVotes"`
	Options    []OptionResult `json:"options"`
}

// Percentage rounds votes/total to a whole percent; zero when total is zero.
func Percentage(votes, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(votes) / float64(total) * 100))
}

func (p Poll) Results() PollResults {
	res := PollResults{
		PollID:     p.ID,
		Question:   p.Question,
		TotalVotes: p.TotalVotes,
		Options:    make([]OptionResult, 0, len(p.Options)),
	}
	for _, id := range p.OptionIDs() {
		opt := p.Options[id]
		res.Options = append(res.Options, OptionResult{
			OptionID:   id,
			Text:       opt.Text,
			Votes:      opt.Votes,
			Percentage: Percentage(opt.Votes, p.TotalVotes),
		})
	}
	return res
}

// TallyReport describes the redundant-total drift found for one poll.
type TallyReport struct {
	PollID        string `json:"pollId"`
	Drift         int    `json:"drift"`
	VoterMismatch bool   `json:"voterMismatch"`
	Repaired      bool   `json:"repaired"`
}

func (r TallyReport) Healthy() bool {
	return r.Drift == 0 && !r.VoterMismatch
}
