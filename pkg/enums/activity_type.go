package enums

import "fmt"

// ActivityType maps to the activity_type_enum enum in Postgres.
type ActivityType string

const (
	ActivityTypeAnalysisCreated   ActivityType = "analysis_created"
	ActivityTypeAnnotationCreated ActivityType = "annotation_created"
	ActivityTypeSymbolCreated     ActivityType = "symbol_created"
	ActivityTypeVoteCast          ActivityType = "vote_cast"
	ActivityTypeCreditsPurchased  ActivityType = "credits_purchased"
)

var validActivityTypes = []ActivityType{
	ActivityTypeAnalysisCreated,
	ActivityTypeAnnotationCreated,
	ActivityTypeSymbolCreated,
	ActivityTypeVoteCast,
	ActivityTypeCreditsPurchased,
}

// IsValid reports whether the value matches the canonical activity enum.
func (t ActivityType) IsValid() bool {
	for _, candidate := range validActivityTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw input into ActivityType.
func ParseActivityType(value string) (ActivityType, error) {
	for _, candidate := range validActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity type %q", value)
}
