// Package optimizer turns availability responses into suggestions the
// operative-state panel can select from and apply as tasks.
package optimizer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/surgisync/internal/models"
)

// Kind tags which response shape a Raw carries.
type Kind int

const (
	KindNone Kind = iota
	KindLegacy
	KindOptimized
)

func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindOptimized:
		return "optimized"
	}
	return "none"
}

// ErrUnrecognized is returned when a body matches neither response shape.
var ErrUnrecognized = errors.New("unrecognized availability response")

// Raw is a decoded availability response. Exactly one of Legacy and
// Optimized is set, as named by Kind.
type Raw struct {
	Kind      Kind
	Legacy    *models.LegacyAvailability
	Optimized *models.OptimizedAvailability
}

// Decode inspects the top-level keys of body to pick the shape, then
// decodes into it.
func Decode(body json.RawMessage) (Raw, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Raw{}, fmt.Errorf("decoding availability response: %w", err)
	}

	if _, ok := fields["scenarios"]; ok {
		var o models.OptimizedAvailability
		if err := json.Unmarshal(body, &o); err != nil {
			return Raw{}, fmt.Errorf("decoding optimized availability: %w", err)
		}
		return Raw{Kind: KindOptimized, Optimized: &o}, nil
	}
	if _, ok := fields["request_key"]; ok {
		var o models.OptimizedAvailability
		if err := json.Unmarshal(body, &o); err != nil {
			return Raw{}, fmt.Errorf("decoding optimized availability: %w", err)
		}
		return Raw{Kind: KindOptimized, Optimized: &o}, nil
	}

	for _, key := range []string{"match_status", "nurses_available", "assistant_doctors_available", "radiologists_available"} {
		if _, ok := fields[key]; ok {
			var l models.LegacyAvailability
			if err := json.Unmarshal(body, &l); err != nil {
				return Raw{}, fmt.Errorf("decoding availability: %w", err)
			}
			return Raw{Kind: KindLegacy, Legacy: &l}, nil
		}
	}
	return Raw{}, ErrUnrecognized
}
