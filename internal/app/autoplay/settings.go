package autoplay

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/nanao/jubox/internal/domain/track"
)

// Settings controls the autoplay feedback loop for one session. Bounds are
// enforced here at the settings-update boundary; the engine does not
// re-validate.
type Settings struct {
	Enabled             bool    `yaml:"enabled" mapstructure:"enabled" default:"true"`
	MinQueueSize        int     `yaml:"min_queue_size" mapstructure:"min_queue_size" default:"2" validate:"gte=1,lte=10"`
	MaxSongsToAdd       int     `yaml:"max_songs_to_add" mapstructure:"max_songs_to_add" default:"3" validate:"gte=1,lte=10"`
	Platform            string  `yaml:"platform" mapstructure:"platform" default:"spotify"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold" default:"0.3" validate:"gte=0,lte=1"`
}

// ParseSettings decodes, defaults and validates loose settings. Defaults
// are applied before decoding so an explicitly supplied zero (enabled:
// false, similarity_threshold: 0) survives.
func ParseSettings(settings map[string]any) (*Settings, error) {
	var s Settings
	if err := defaults.Set(&s); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := mapstructure.Decode(settings, &s); err != nil {
		return nil, errors.Wrap(err, "failed to decode autoplay settings")
	}
	if err := validator.New().Struct(s); err != nil {
		return nil, errors.Wrap(err, "autoplay settings validation failed")
	}
	return &s, nil
}

// TrackPlatform returns the configured platform as a domain type.
func (s *Settings) TrackPlatform() track.Platform {
	return track.Platform(s.Platform)
}
