package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrInvalidFieldPath = errors.New("invalid field path")

const (
	FieldTotalVotes = "totalVotes"
	FieldOptions    = "options"
	FieldVotes      = "votes"
	FieldVoters     = "voters"
)

// FieldPath addresses a field inside a poll document, one segment per level.
type FieldPath []string

func (p FieldPath) String() string {
	return strings.Join(p, ".")
}

func TotalVotesPath() FieldPath {
	return FieldPath{FieldTotalVotes}
}

func OptionVotesPath(optionID string) FieldPath {
	return FieldPath{FieldOptions, optionID, FieldVotes}
}

func OptionVotersPath(optionID string) FieldPath {
	return FieldPath{FieldOptions, optionID, FieldVoters}
}

type DeltaKind int

const (
	DeltaIncrement DeltaKind = iota
	DeltaSetAdd
	DeltaSetRemove
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaIncrement:
		return "increment"
	case DeltaSetAdd:
		return "set-add"
	case DeltaSetRemove:
		return "set-remove"
	}
	return fmt.Sprintf("DeltaKind(%d)", int(k))
}

// FieldDelta is one atomic field operation. Amount is used by increments,
// Element by set operations.
type FieldDelta struct {
	Path    FieldPath
	Kind    DeltaKind
	Amount  int
	Element string
}

func Increment(path FieldPath, amount int) FieldDelta {
	return FieldDelta{Path: path, Kind: DeltaIncrement, Amount: amount}
}

func SetAdd(path FieldPath, element string) FieldDelta {
	return FieldDelta{Path: path, Kind: DeltaSetAdd, Element: element}
}

func SetRemove(path FieldPath, element string) FieldDelta {
	return FieldDelta{Path: path, Kind: DeltaSetRemove, Element: element}
}

func (d FieldDelta) String() string {
	if d.Kind == DeltaIncrement {
		return fmt.Sprintf("%s %s %+d", d.Path, d.Kind, d.Amount)
	}
	return fmt.Sprintf("%s %s %q", d.Path, d.Kind, d.Element)
}

// ApplyDeltas applies every delta to a copy of doc and returns it. doc is left
// untouched when any delta is rejected.
func ApplyDeltas(doc *PollDocument, deltas []FieldDelta) (*PollDocument, error) {
	out := doc.Clone()
	for _, d := range deltas {
		if err := applyDelta(out, d); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyDelta(doc *PollDocument, d FieldDelta) error {
	switch {
	case len(d.Path) == 1 && d.Path[0] == FieldTotalVotes:
		if d.Kind != DeltaIncrement {
			return fmt.Errorf("%w: %s does not support %s", ErrInvalidFieldPath, d.Path, d.Kind)
		}
		total := d.Amount
		if doc.TotalVotes != nil {
			total += *doc.TotalVotes
		}
		doc.TotalVotes = &total
		return nil

	case len(d.Path) == 3 && d.Path[0] == FieldOptions:
		opt, ok := doc.Options[d.Path[1]]
		if !ok || opt == nil {
			return fmt.Errorf("%w: unknown option %q", ErrInvalidFieldPath, d.Path[1])
		}
		switch {
		case d.Path[2] == FieldVotes && d.Kind == DeltaIncrement:
			votes := d.Amount
			if opt.Votes != nil {
				votes += *opt.Votes
			}
			opt.Votes = &votes
		case d.Path[2] == FieldVoters && d.Kind == DeltaSetAdd:
			if !slices.Contains(opt.Voters, d.Element) {
				opt.Voters = append(opt.Voters, d.Element)
			}
		case d.Path[2] == FieldVoters && d.Kind == DeltaSetRemove:
			opt.Voters = slices.DeleteFunc(opt.Voters, func(v string) bool { return v == d.Element })
			if opt.Voters == nil {
				opt.Voters = []string{}
			}
		default:
			return fmt.Errorf("%w: %s does not support %s", ErrInvalidFieldPath, d.Path, d.Kind)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidFieldPath, d.Path)
}
