package domain

import "slices"

// VotePlan is the outcome of reconciling a vote intent against a poll.
type VotePlan struct {
	PollID           string
	UserID           string
	PreviousOptionID string
	TargetOptionID   string
	Deltas           []FieldDelta
}

// NoOp reports whether the user already holds the target option.
func (p VotePlan) NoOp() bool {
	return len(p.Deltas) == 0
}

// Moved reports whether the plan moves an existing vote.
func (p VotePlan) Moved() bool {
	return p.PreviousOptionID != "" && !p.NoOp()
}

// PlanVote computes the minimal set of field deltas that moves userID onto
// targetOptionID. A first vote adds one to the total; a move leaves it alone.
func PlanVote(poll Poll, targetOptionID, userID string) (VotePlan, error) {
	if userID == "" {
		return VotePlan{}, ErrUnauthenticated
	}
	if !poll.HasOption(targetOptionID) {
		return VotePlan{}, ErrInvalidOption
	}

	plan := VotePlan{PollID: poll.ID, UserID: userID, TargetOptionID: targetOptionID}
	previous, hasPrevious := poll.VoterOption(userID)
	if hasPrevious {
		plan.PreviousOptionID = previous
		if previous == targetOptionID {
			return plan, nil
		}
		plan.Deltas = append(plan.Deltas,
			Increment(OptionVotesPath(previous), -1),
			SetRemove(OptionVotersPath(previous), userID),
		)
	}

	plan.Deltas = append(plan.Deltas,
		Increment(OptionVotesPath(targetOptionID), 1),
		SetAdd(OptionVotersPath(targetOptionID), userID),
	)
	if !hasPrevious {
		plan.Deltas = append(plan.Deltas, Increment(TotalVotesPath(), 1))
	}
	return plan, nil
}

// ApplyTo returns a copy of poll with the plan applied locally. A poll that
// already shows the user on the target option is returned unchanged, since
// the change feed got there first.
func (p VotePlan) ApplyTo(poll Poll) Poll {
	out := poll.Clone()
	if p.NoOp() {
		return out
	}
	if current, ok := out.VoterOption(p.UserID); ok && current == p.TargetOptionID {
		return out
	}
	if p.PreviousOptionID != "" {
		if prev, ok := out.Options[p.PreviousOptionID]; ok {
			prev.Votes--
			prev.Voters = slices.DeleteFunc(prev.Voters, func(v string) bool { return v == p.UserID })
			out.Options[p.PreviousOptionID] = prev
		}
	}
	if target, ok := out.Options[p.TargetOptionID]; ok {
		target.Votes++
		target.Voters = append(target.Voters, p.UserID)
		out.Options[p.TargetOptionID] = target
	}

	out.TotalVotes = 0
	for _, o := range out.Options {
		out.TotalVotes += o.Votes
	}
	return out
}
