package generation

import (
	"coursecoach/internal/config"
	"coursecoach/internal/domain"
)

// Profile is one draft-length tier of generation parameters.
type Profile struct {
	Name     string
	MaxChars int
	Options  domain.GenerateOptions
}

// Profiles picks generation parameters by draft length. A draft belongs to
// the first tier whose MaxChars it does not exceed; Deep has no upper bound.
type Profiles struct {
	Fast     Profile
	Standard Profile
	Deep     Profile
}

// DefaultProfiles returns the stock fast/standard/deep tiers.
func DefaultProfiles() Profiles {
	return Profiles{
		Fast:     Profile{Name: "fast", MaxChars: 900, Options: domain.GenerateOptions{Temperature: domain.Temperature(0.2), MaxOutputTokens: 900, ReasoningEffort: "low"}},
		Standard: Profile{Name: "standard", MaxChars: 2200, Options: domain.GenerateOptions{Temperature: domain.Temperature(0.2), MaxOutputTokens: 1400, ReasoningEffort: "medium"}},
		Deep:     Profile{Name: "deep", Options: domain.GenerateOptions{Temperature: domain.Temperature(0.15), MaxOutputTokens: 2200, ReasoningEffort: "high"}},
	}
}

// ProfilesFromConfig converts the yaml profile section.
func ProfilesFromConfig(c config.ProfilesConfig) Profiles {
	conv := func(name string, p config.ProfileConfig) Profile {
		return Profile{
			Name:     name,
			MaxChars: p.MaxChars,
			Options: domain.GenerateOptions{
				Temperature:     p.Temperature,
				MaxOutputTokens: p.MaxOutputTokens,
				ReasoningEffort: p.ReasoningEffort,
			},
		}
	}
	if c == (config.ProfilesConfig{}) {
		return DefaultProfiles()
	}
	return Profiles{
		Fast:     conv("fast", c.Fast),
		Standard: conv("standard", c.Standard),
		Deep:     conv("deep", c.Deep),
	}
}

// ForLength returns the profile for a draft of n characters.
func (p Profiles) ForLength(n int) Profile {
	if p.Fast.MaxChars > 0 && n <= p.Fast.MaxChars {
		return p.Fast
	}
	if p.Standard.MaxChars > 0 && n <= p.Standard.MaxChars {
		return p.Standard
	}
	return p.Deep
}
