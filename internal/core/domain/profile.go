package domain

import "fmt"

// Profile names a closed set of retrieval quality/latency trade-offs.
// Settings are resolved once at request start and passed by value.
type Profile string

const (
	ProfileFast     Profile = "fast"
	ProfileBalanced Profile = "balanced"
	ProfileRigorous Profile = "rigorous"
	ProfileAudit    Profile = "audit"
)

type GateThresholds struct {
	MinBestScore float64 `json:"min_best_score" yaml:"min_best_score"`
	MinAvgScore  float64 `json:"min_avg_score" yaml:"min_avg_score"`
}

type ProfileSettings struct {
	Thresholds       GateThresholds `yaml:"thresholds"`
	MaxRetries       int            `yaml:"max_rag_retries"`
	RetryExpandScope bool           `yaml:"rag_retry_expand_scope"`
}

// DefaultProfiles returns the compiled-in profile table. A YAML file can
// override individual profiles but never add new names.
func DefaultProfiles() map[Profile]ProfileSettings {
	return map[Profile]ProfileSettings{
		ProfileFast: {
			Thresholds: GateThresholds{MinBestScore: 0.015, MinAvgScore: 0.010},
			MaxRetries: 1,
		},
		ProfileBalanced: {
			Thresholds: GateThresholds{MinBestScore: 0.020, MinAvgScore: 0.014},
			MaxRetries: 2,
		},
		ProfileRigorous: {
			Thresholds:       GateThresholds{MinBestScore: 0.025, MinAvgScore: 0.018},
			MaxRetries:       3,
			RetryExpandScope: true,
		},
		ProfileAudit: {
			Thresholds:       GateThresholds{MinBestScore: 0.028, MinAvgScore: 0.022},
			MaxRetries:       3,
			RetryExpandScope: true,
		},
	}
}

func ParseProfile(name string) (Profile, error) {
	switch Profile(name) {
	case ProfileFast, ProfileBalanced, ProfileRigorous, ProfileAudit:
		return Profile(name), nil
	case "":
		return ProfileBalanced, nil
	}
	return "", fmt.Errorf("%w: unknown retrieval profile %q", ErrInvalidInput, name)
}
