package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-shades/internal/manifest"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		raw     *manifest.Schedule
		want    Schedule
		wantErr error
	}{
		{
			name: "plain cron",
			raw:  &manifest.Schedule{Cron: "30 6 * * *"},
			want: Schedule{Cron: "30 6 * * *"},
		},
		{
			name: "sunset hours only",
			raw:  &manifest.Schedule{Cron: "0 0 * * *", Sunset: &manifest.SunOffset{Hours: 1}},
			want: Schedule{Cron: "0 0 * * *", SunOffset: &SunOffset{Hours: 1, Anchor: AnchorSunset}},
		},
		{
			name: "sunrise minutes only",
			raw:  &manifest.Schedule{Cron: "0 0 * * *", Sunrise: &manifest.SunOffset{Minutes: 20}},
			want: Schedule{Cron: "0 0 * * *", SunOffset: &SunOffset{Minutes: 20, Anchor: AnchorSunrise}},
		},
		{
			name: "sunset wins over sunrise",
			raw: &manifest.Schedule{
				Cron:    "0 0 * * *",
				Sunset:  &manifest.SunOffset{Hours: 2},
				Sunrise: &manifest.SunOffset{Hours: 5},
			},
			want: Schedule{Cron: "0 0 * * *", SunOffset: &SunOffset{Hours: 2, Anchor: AnchorSunset}},
		},
		{
			name: "empty sunset block means the event itself",
			raw:  &manifest.Schedule{Cron: "0 0 * * *", Sunset: &manifest.SunOffset{}},
			want: Schedule{Cron: "0 0 * * *", SunOffset: &SunOffset{Anchor: AnchorSunset}},
		},
		{
			name:    "no cron",
			raw:     &manifest.Schedule{Sunset: &manifest.SunOffset{Hours: 1}},
			wantErr: manifest.ErrMissingCron,
		},
		{
			name:    "no schedule block",
			raw:     nil,
			wantErr: manifest.ErrMissingCron,
		},
		{
			name:    "negative hours",
			raw:     &manifest.Schedule{Cron: "0 0 * * *", Sunrise: &manifest.SunOffset{Hours: -1}},
			wantErr: manifest.ErrInvalidSunOffset,
		},
		{
			name:    "negative minutes",
			raw:     &manifest.Schedule{Cron: "0 0 * * *", Sunset: &manifest.SunOffset{Minutes: -5}},
			wantErr: manifest.ErrInvalidSunOffset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.Cron != tt.want.Cron {
				t.Errorf("Cron = %q, want %q", got.Cron, tt.want.Cron)
			}
			switch {
			case tt.want.SunOffset == nil && got.SunOffset != nil:
				t.Errorf("SunOffset = %+v, want nil", got.SunOffset)
			case tt.want.SunOffset != nil && (got.SunOffset == nil || *got.SunOffset != *tt.want.SunOffset):
				t.Errorf("SunOffset = %+v, want %+v", got.SunOffset, tt.want.SunOffset)
			}
		})
	}
}

func TestSunOffset_Duration(t *testing.T) {
	o := SunOffset{Hours: 1, Minutes: 30, Anchor: AnchorSunset}
	if got := o.Duration(); got != 90*time.Minute {
		t.Errorf("Duration() = %v, want 1h30m", got)
	}
	if got := o.String(); got != "sunset+1h30m" {
		t.Errorf("String() = %q, want %q", got, "sunset+1h30m")
	}
}

func TestParseAnchor(t *testing.T) {
	if a, err := ParseAnchor("Sunset"); err != nil || a != AnchorSunset {
		t.Errorf("ParseAnchor(Sunset) = %q, %v", a, err)
	}
	if _, err := ParseAnchor("noon"); !errors.Is(err, ErrInvalidAnchor) {
		t.Errorf("ParseAnchor(noon) error = %v, want ErrInvalidAnchor", err)
	}
}

func TestResolve_FromManifestYAML(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  string
	}{
		{"bare sunset", "      sunset:\n", "0 0 * * * @ sunset+0h00m"},
		{"bare sunset beats sunrise", "      sunset:\n      sunrise:\n        hours: 1\n", "0 0 * * * @ sunset+0h00m"},
		{"sunrise alone", "      sunrise:\n        minutes: 20\n", "0 0 * * * @ sunrise+0h20m"},
		{"no sun key", "", "0 0 * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "automations:\n  - name: a\n    schedule:\n      cron: \"0 0 * * *\"\n" + tt.block
			f, err := manifest.Parse([]byte(doc))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got, err := Resolve(f.Automations[0].Schedule)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("Resolve() = %q, want %q", got.String(), tt.want)
			}
		})
	}
}
