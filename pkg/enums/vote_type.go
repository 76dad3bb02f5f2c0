package enums

import "fmt"

// VoteType maps to the vote_type_enum enum in Postgres.
type VoteType string

const (
	VoteTypeUpvote   VoteType = "upvote"
	VoteTypeDownvote VoteType = "downvote"
)

var validVoteTypes = []VoteType{
	VoteTypeUpvote,
	VoteTypeDownvote,
}

// IsValid reports whether the value matches the canonical vote type enum.
func (t VoteType) IsValid() bool {
	for _, candidate := range validVoteTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ScoreDelta returns the score contribution of a single vote of this type.
func (t VoteType) ScoreDelta() int {
	if t == VoteTypeDownvote {
		return -1
	}
	return 1
}

// Opposite returns the reversed vote direction.
func (t VoteType) Opposite() VoteType {
	if t == VoteTypeUpvote {
		return VoteTypeDownvote
	}
	return VoteTypeUpvote
}

// ParseVoteType converts raw input into VoteType.
func ParseVoteType(value string) (VoteType, error) {
	for _, candidate := range validVoteTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vote type %q", value)
}
