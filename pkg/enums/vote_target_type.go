package enums

import "fmt"

// VoteTargetType discriminates which entity a vote row points at.
type VoteTargetType string

const (
	VoteTargetTypeAnnotation VoteTargetType = "annotation"
	VoteTargetTypeBlogPost   VoteTargetType = "blog_post"
)

var validVoteTargetTypes = []VoteTargetType{
	VoteTargetTypeAnnotation,
	VoteTargetTypeBlogPost,
}

// IsValid reports whether the value matches the canonical target type enum.
func (t VoteTargetType) IsValid() bool {
	for _, candidate := range validVoteTargetTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseVoteTargetType converts raw input into VoteTargetType.
func ParseVoteTargetType(value string) (VoteTargetType, error) {
	for _, candidate := range validVoteTargetTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vote target type %q", value)
}
