package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-shades/internal/manifest"
)

var pst = time.FixedZone("PST", -8*60*60)

// fixedSolar rises at 07:00 and sets at 18:30 local time every day, except
// on dark days when neither event happens.
type fixedSolar struct {
	dark map[string]bool
}

func (f fixedSolar) Events(date time.Time) (time.Time, time.Time) {
	d := date.In(pst)
	if f.dark[d.Format(time.DateOnly)] {
		return time.Time{}, time.Time{}
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, 7, 0, 0, 0, pst), time.Date(y, m, day, 18, 30, 0, 0, pst)
}

func at(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2026, month, day, hour, minute, 0, 0, pst)
}

func TestPlanner_Next(t *testing.T) {
	sunset1h := Schedule{Cron: "0 0 * * *", SunOffset: &SunOffset{Hours: 1, Anchor: AnchorSunset}}
	sunrise30m := Schedule{Cron: "0 0 * * *", SunOffset: &SunOffset{Minutes: 30, Anchor: AnchorSunrise}}
	weekdaySunset := Schedule{Cron: "0 0 * * 1-5", SunOffset: &SunOffset{Hours: 1, Anchor: AnchorSunset}}

	// 2026-10-15 is a Thursday.
	tests := []struct {
		name      string
		schedule  Schedule
		direction Direction
		after     time.Time
		want      time.Time
	}{
		{
			name:     "plain cron later today",
			schedule: Schedule{Cron: "30 6 * * *"},
			after:    at(time.October, 15, 5, 0),
			want:     at(time.October, 15, 6, 30),
		},
		{
			name:     "plain cron tomorrow",
			schedule: Schedule{Cron: "30 6 * * *"},
			after:    at(time.October, 15, 12, 0),
			want:     at(time.October, 16, 6, 30),
		},
		{
			name:      "sunset plus one hour",
			schedule:  sunset1h,
			direction: DirectionAfter,
			after:     at(time.October, 15, 12, 0),
			want:      at(time.October, 15, 19, 30),
		},
		{
			name:      "already past today rolls to tomorrow",
			schedule:  sunset1h,
			direction: DirectionAfter,
			after:     at(time.October, 15, 20, 0),
			want:      at(time.October, 16, 19, 30),
		},
		{
			name:      "before direction",
			schedule:  sunset1h,
			direction: DirectionBefore,
			after:     at(time.October, 15, 12, 0),
			want:      at(time.October, 15, 17, 30),
		},
		{
			name:      "sunrise minutes",
			schedule:  sunrise30m,
			direction: DirectionAfter,
			after:     at(time.October, 15, 0, 0),
			want:      at(time.October, 15, 7, 30),
		},
		{
			name:      "weekday cron skips the weekend",
			schedule:  weekdaySunset,
			direction: DirectionAfter,
			after:     at(time.October, 16, 20, 0),
			want:      at(time.October, 19, 19, 30),
		},
		{
			name:      "instant in another zone",
			schedule:  sunset1h,
			direction: DirectionAfter,
			after:     at(time.October, 15, 12, 0).UTC(),
			want:      at(time.October, 15, 19, 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlanner(pst, fixedSolar{}, tt.direction)
			got, err := p.Next(tt.schedule, tt.after)
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanner_SkipsDaysWithoutEvent(t *testing.T) {
	solar := fixedSolar{dark: map[string]bool{"2026-10-15": true, "2026-10-16": true}}
	p := NewPlanner(pst, solar, DirectionAfter)

	s := Schedule{Cron: "0 0 * * *", SunOffset: &SunOffset{Anchor: AnchorSunset}}
	got, err := p.Next(s, at(time.October, 15, 0, 0))
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if want := at(time.October, 17, 18, 30); !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
}

func TestPlanner_TriggerSequence(t *testing.T) {
	p := NewPlanner(pst, fixedSolar{}, DirectionAfter)
	trig, err := p.Trigger(Schedule{Cron: "0 0 * * *", SunOffset: &SunOffset{Hours: 1, Anchor: AnchorSunset}})
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	next := at(time.October, 15, 12, 0)
	for i := range 3 {
		next = trig.Next(next)
		if want := at(time.October, 15+i, 19, 30); !next.Equal(want) {
			t.Fatalf("firing %d = %v, want %v", i, next, want)
		}
	}
}

func TestPlanner_InvalidCron(t *testing.T) {
	p := NewPlanner(pst, fixedSolar{}, DirectionAfter)

	for _, expr := range []string{"61 * * * *", "every day", "* * *"} {
		if _, err := p.Trigger(Schedule{Cron: expr}); !errors.Is(err, manifest.ErrInvalidCron) {
			t.Errorf("Trigger(%q) error = %v, want ErrInvalidCron", expr, err)
		}
	}
}

func TestPlanner_SunOffsetWithoutSolar(t *testing.T) {
	p := NewPlanner(pst, nil, DirectionAfter)
	_, err := p.Trigger(Schedule{Cron: "0 0 * * *", SunOffset: &SunOffset{Anchor: AnchorSunrise}})
	if err == nil {
		t.Error("Trigger() with a sun offset and no solar clock should fail")
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{in: "", want: DirectionAfter},
		{in: "after", want: DirectionAfter},
		{in: "BEFORE", want: DirectionBefore},
		{in: "around", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDirection(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDirection(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
