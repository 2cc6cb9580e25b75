package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-shades/internal/manifest"
)

// Anchor is the solar event a sun offset is measured from.
type Anchor string

// Solar anchors.
const (
	AnchorSunrise Anchor = "SUNRISE"
	AnchorSunset  Anchor = "SUNSET"
)

// ParseAnchor decodes an anchor name case-insensitively.
func ParseAnchor(s string) (Anchor, error) {
	switch Anchor(strings.ToUpper(strings.TrimSpace(s))) {
	case AnchorSunrise:
		return AnchorSunrise, nil
	case AnchorSunset:
		return AnchorSunset, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAnchor, s)
}

// SunOffset is a non-negative distance from a solar event. It carries only a
// magnitude and an anchor; which side of the event it falls on is decided
// by the Planner.
type SunOffset struct {
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Anchor  Anchor `json:"anchor"`
}

// Duration returns the offset magnitude.
func (o SunOffset) Duration() time.Duration {
	return time.Duration(o.Hours)*time.Hour + time.Duration(o.Minutes)*time.Minute
}

// String implements fmt.Stringer.
func (o SunOffset) String() string {
	return fmt.Sprintf("%s%+dh%02dm", strings.ToLower(string(o.Anchor)), o.Hours, o.Minutes)
}

// Schedule is a cron expression, optionally tied to a solar event.
type Schedule struct {
	Cron      string     `json:"cron"`
	SunOffset *SunOffset `json:"sun_offset,omitempty"`
}

// String implements fmt.Stringer.
func (s Schedule) String() string {
	if s.SunOffset == nil {
		return s.Cron
	}
	return s.Cron + " @ " + s.SunOffset.String()
}

// Resolve normalises a raw schedule block. It performs no date arithmetic.
//
// When both sunset and sunrise are given, sunset wins. Missing hours or
// minutes default to zero; negative values are rejected.
func Resolve(raw *manifest.Schedule) (Schedule, error) {
	if raw == nil {
		return Schedule{}, manifest.Errorf(manifest.KindMissingCron, "schedule block is missing")
	}
	cron := strings.TrimSpace(raw.Cron)
	if cron == "" {
		return Schedule{}, manifest.Errorf(manifest.KindMissingCron, "schedule has no cron expression")
	}

	s := Schedule{Cron: cron}

	// Keys in precedence order: sunset wins when both are present.
	var (
		off *manifest.SunOffset
		key string
	)
	switch {
	case raw.Sunset != nil:
		off, key = raw.Sunset, "sunset"
	case raw.Sunrise != nil:
		off, key = raw.Sunrise, "sunrise"
	default:
		return s, nil
	}
	anchor, err := ParseAnchor(key)
	if err != nil {
		return Schedule{}, err
	}

	if off.Hours < 0 || off.Minutes < 0 {
		return Schedule{}, manifest.Errorf(manifest.KindInvalidSunOffset,
			"%s offset %dh%dm is negative", strings.ToLower(string(anchor)), off.Hours, off.Minutes)
	}

	s.SunOffset = &SunOffset{Hours: off.Hours, Minutes: off.Minutes, Anchor: anchor}
	return s, nil
}
