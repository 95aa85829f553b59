package domain

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Poll is the normalised, in-memory view of a poll document.
type Poll struct {
	ID          string            `json:"id"`
	Question    string            `json:"question"`
	CreatorID   string            `json:"creatorId"`
	CreatorName string            `json:"creatorName"`
	Options     map[string]Option `json:"options"`
	TotalVotes  int               `json:"totalVotes"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type Option struct {
	Text   string   `json:"text"`
	Votes  int      `json:"votes"`
	Voters []string `json:"voters"`
}

// PollDocument is the shape persisted by a backend. Optional fields are
// pointers or nil slices because older documents may lack them; Normalize is
// the only place that fills the gaps.
type PollDocument struct {
	ID          string                     `json:"-"`
	Question    string                     `json:"question"`
	CreatorID   string                     `json:"creatorId,omitempty"`
	CreatorName string                     `json:"creatorName,omitempty"`
	TotalVotes  *int                       `json:"totalVotes,omitempty"`
	Options     map[string]*OptionDocument `json:"options"`
	CreatedAt   time.Time                  `json:"createdAt"`
}

type OptionDocument struct {
	Text   string   `json:"text"`
	Votes  *int     `json:"votes,omitempty"`
	Voters []string `json:"voters"`
}

// NewPollDocument builds a zero-tally document with ordinal option ids.
func NewPollDocument(question, creatorID, creatorName string, options []string, now time.Time) *PollDocument {
	doc := &PollDocument{
		Question:    question,
		CreatorID:   creatorID,
		CreatorName: creatorName,
		TotalVotes:  intPtr(0),
		Options:     make(map[string]*OptionDocument, len(options)),
		CreatedAt:   now.UTC(),
	}
	for i, text := range options {
		doc.Options[strconv.Itoa(i)] = &OptionDocument{
			Text:   text,
			Votes:  intPtr(0),
			Voters: []string{},
		}
	}
	return doc
}

// Normalize converts the stored document into a Poll. Missing votes default
// to zero, missing voters to an empty set, duplicate voters are collapsed and
// TotalVotes is derived from the option tallies.
func (d *PollDocument) Normalize() Poll {
	p := Poll{
		ID:          d.ID,
		Question:    d.Question,
		CreatorID:   d.CreatorID,
		CreatorName: d.CreatorName,
		CreatedAt:   d.CreatedAt,
		Options:     make(map[string]Option, len(d.Options)),
	}
	for id, o := range d.Options {
		opt := Option{Voters: []string{}}
		if o != nil {
			opt.Text = o.Text
			if o.Votes != nil {
				opt.Votes = *o.Votes
			}
			opt.Voters = uniqueStrings(o.Voters)
		}
		p.Options[id] = opt
		p.TotalVotes += opt.Votes
	}
	return p
}

// TotalVotesDrift is the stored total minus the sum of option votes.
func (d *PollDocument) TotalVotesDrift() int {
	stored := 0
	if d.TotalVotes != nil {
		stored = *d.TotalVotes
	}
	sum := 0
	for _, o := range d.Options {
		if o != nil && o.Votes != nil {
			sum += *o.Votes
		}
	}
	return stored - sum
}

// Clone returns a deep copy of the document.
func (d *PollDocument) Clone() *PollDocument {
	c := *d
	if d.TotalVotes != nil {
		c.TotalVotes = intPtr(*d.TotalVotes)
	}
	c.Options = make(map[string]*OptionDocument, len(d.Options))
	for id, o := range d.Options {
		if o == nil {
			c.Options[id] = nil
			continue
		}
		oc := &OptionDocument{Text: o.Text, Voters: slices.Clone(o.Voters)}
		if o.Votes != nil {
			oc.Votes = intPtr(*o.Votes)
		}
		c.Options[id] = oc
	}
	return &c
}

// Clone returns a deep copy of the poll.
func (p Poll) Clone() Poll {
	c := p
	c.Options = make(map[string]Option, len(p.Options))
	for id, o := range p.Options {
		o.Voters = slices.Clone(o.Voters)
		if o.Voters == nil {
			o.Voters = []string{}
		}
		c.Options[id] = o
	}
	return c
}

// OptionIDs returns option ids in creation order.
func (p Poll) OptionIDs() []string {
	ids := make([]string, 0, len(p.Options))
	for id := range p.Options {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}

// VoterOption returns the option currently holding userID, if any.
func (p Poll) VoterOption(userID string) (string, bool) {
	for _, id := range p.OptionIDs() {
		if slices.Contains(p.Options[id].Voters, userID) {
			return id, true
		}
	}
	return "", false
}

func (p Poll) HasOption(optionID string) bool {
	_, ok := p.Options[optionID]
	return ok
}

// MatchesQuery reports whether the question contains q, ignoring case.
func (p Poll) MatchesQuery(q string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Question), strings.ToLower(q))
}

// CheckInvariants returns the first violated tally invariant, or nil.
func (p Poll) CheckInvariants() error {
	sum := 0
	seen := make(map[string]string)
	for _, id := range p.OptionIDs() {
		opt := p.Options[id]
		if opt.Votes < 0 {
			return fmt.Errorf("option %s has negative votes %d", id, opt.Votes)
		}
		if opt.Votes != len(opt.Voters) {
			return fmt.Errorf("option %s has %d votes but %d voters", id, opt.Votes, len(opt.Voters))
		}
		for _, v := range opt.Voters {
			if other, ok := seen[v]; ok {
				return fmt.Errorf("voter %s appears in options %s and %s", v, other, id)
			}
			seen[v] = id
		}
		sum += opt.Votes
	}
	if sum != p.TotalVotes {
		return fmt.Errorf("total votes %d does not match option sum %d", p.TotalVotes, sum)
	}
	return nil
}

// SortPolls orders polls newest first, then by id.
func SortPolls(polls []Poll) {
	sort.SliceStable(polls, func(i, j int) bool {
		if !polls[i].CreatedAt.Equal(polls[j].CreatedAt) {
			return polls[i].CreatedAt.After(polls[j].CreatedAt)
		}
		return polls[i].ID < polls[j].ID
	})
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func intPtr(v int) *int {
	return &v
}
