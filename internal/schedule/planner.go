package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerrad567/gray-logic-shades/internal/manifest"
)

// Direction decides which side of the solar event a sun offset lands on.
type Direction string

// Offset directions.
const (
	DirectionAfter  Direction = "after"
	DirectionBefore Direction = "before"
)

// ParseDirection decodes an offset direction. The empty string means after.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", DirectionAfter:
		return DirectionAfter, nil
	case DirectionBefore:
		return DirectionBefore, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// maxSolarSearchDays bounds how many cron-matching days a sun trigger walks
// before giving up, which only happens when the sun never rises or sets.
const maxSolarSearchDays = 400

// SolarClock reports the sunrise and sunset on the calendar date of date.
// A zero time means the event does not happen that day.
type SolarClock interface {
	Events(date time.Time) (sunrise, sunset time.Time)
}

// Trigger yields successive fire times. It has the same method set as
// cron.Schedule, so triggers can be handed straight to a cron runner.
type Trigger interface {
	Next(after time.Time) time.Time
}

var _ cron.Schedule = Trigger(nil)

// Planner turns schedules into concrete triggers for one site.
type Planner struct {
	loc       *time.Location
	solar     SolarClock
	direction Direction
	parser    cron.Parser
}

// NewPlanner creates a planner evaluating cron expressions in loc.
// solar may be nil when no schedule uses a sun offset.
func NewPlanner(loc *time.Location, solar SolarClock, direction Direction) *Planner {
	if loc == nil {
		loc = time.UTC
	}
	if direction == "" {
		direction = DirectionAfter
	}
	return &Planner{
		loc:       loc,
		solar:     solar,
		direction: direction,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Location returns the planner's time zone.
func (p *Planner) Location() *time.Location {
	return p.loc
}

// Trigger builds the trigger for s.
//
// A plain schedule fires whenever its cron expression matches. A schedule
// with a sun offset uses only the date part of its cron expression: on
// every matching day it fires once, at the anchored solar event shifted by
// the offset in the planner's direction.
//
// An unparsable cron expression fails with manifest.ErrInvalidCron.
func (p *Planner) Trigger(s Schedule) (Trigger, error) {
	spec, err := p.parser.Parse(s.Cron)
	if err != nil {
		return nil, manifest.Errorf(manifest.KindInvalidCron, "%q: %v", s.Cron, err)
	}

	if s.SunOffset == nil {
		return cronTrigger{spec: spec, loc: p.loc}, nil
	}
	if p.solar == nil {
		return nil, fmt.Errorf("schedule %q: sun offset needs a solar clock", s)
	}

	offset := s.SunOffset.Duration()
	if p.direction == DirectionBefore {
		offset = -offset
	}
	return &sunTrigger{
		days:   spec,
		loc:    p.loc,
		solar:  p.solar,
		anchor: s.SunOffset.Anchor,
		offset: offset,
	}, nil
}

// Next returns the first fire time of s strictly after after.
func (p *Planner) Next(s Schedule, after time.Time) (time.Time, error) {
	t, err := p.Trigger(s)
	if err != nil {
		return time.Time{}, err
	}
	return t.Next(after), nil
}

type cronTrigger struct {
	spec cron.Schedule
	loc  *time.Location
}

func (c cronTrigger) Next(after time.Time) time.Time {
	return c.spec.Next(after.In(c.loc))
}

type sunTrigger struct {
	days   cron.Schedule
	loc    *time.Location
	solar  SolarClock
	anchor Anchor
	offset time.Duration
}

func (s *sunTrigger) Next(after time.Time) time.Time {
	// Start one second before local midnight so today counts as a candidate.
	cursor := startOfDay(after.In(s.loc)).Add(-time.Second)

	for range maxSolarSearchDays {
		match := s.days.Next(cursor)
		if match.IsZero() {
			return time.Time{}
		}

		if fire, ok := s.fireOn(match); ok && fire.After(after) {
			return fire
		}
		cursor = startOfDay(match).AddDate(0, 0, 1).Add(-time.Second)
	}
	return time.Time{}
}

func (s *sunTrigger) fireOn(day time.Time) (time.Time, bool) {
	sunrise, sunset := s.solar.Events(day)

	event := sunset
	if s.anchor == AnchorSunrise {
		event = sunrise
	}
	if event.IsZero() {
		return time.Time{}, false
	}
	return event.Add(s.offset).In(s.loc), true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
