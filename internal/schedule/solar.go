package schedule

import (
	"fmt"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/patrickmn/go-cache"
)

const (
	solarMemoTTL     = 48 * time.Hour
	solarMemoCleanup = time.Hour
)

type solarEvents struct {
	sunrise time.Time
	sunset  time.Time
}

// Solar computes sunrise and sunset for a fixed site. Results are memoised
// per local calendar date. Safe for concurrent use.
type Solar struct {
	latitude  float64
	longitude float64
	loc       *time.Location
	memo      *cache.Cache
}

// NewSolar creates a solar clock for the given coordinates. Event times are
// reported in loc.
func NewSolar(latitude, longitude float64, loc *time.Location) (*Solar, error) {
	if latitude < -90 || latitude > 90 {
		return nil, fmt.Errorf("%w: latitude %v", ErrInvalidLocation, latitude)
	}
	if longitude < -180 || longitude > 180 {
		return nil, fmt.Errorf("%w: longitude %v", ErrInvalidLocation, longitude)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Solar{
		latitude:  latitude,
		longitude: longitude,
		loc:       loc,
		memo:      cache.New(solarMemoTTL, solarMemoCleanup),
	}, nil
}

// Events implements SolarClock. The date is taken from date in the site's
// time zone.
func (s *Solar) Events(date time.Time) (time.Time, time.Time) {
	local := date.In(s.loc)
	key := local.Format(time.DateOnly)

	if v, ok := s.memo.Get(key); ok {
		e := v.(solarEvents) //nolint:forcetypeassert // memo only ever holds solarEvents
		return e.sunrise, e.sunset
	}

	rise, set := sunrise.SunriseSunset(s.latitude, s.longitude, local.Year(), local.Month(), local.Day())
	e := solarEvents{sunrise: inLocation(rise, s.loc), sunset: inLocation(set, s.loc)}
	s.memo.Set(key, e, cache.DefaultExpiration)
	return e.sunrise, e.sunset
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(loc)
}
