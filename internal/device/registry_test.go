package device

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-shades/internal/manifest"
)

func testFile() manifest.File {
	return manifest.File{
		Devices: []manifest.Device{
			{Name: "Dining Room Left", Type: "SHADE", LocationTags: []string{"dining_room", "south"}},
			{Name: "Dining Room Right", Type: "shade", LocationTags: []string{"dining_room"}},
			{Name: "Porch Light", Type: "Switch", LocationTags: []string{"outdoor"}},
			{Name: "Den", Type: "SHADE"},
		},
	}
}

func names(devices []Device) []string {
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.Name)
	}
	return out
}

func TestLoad(t *testing.T) {
	reg, err := Load(testFile())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if reg.Len() != 4 {
		t.Errorf("Len() = %d, want 4", reg.Len())
	}

	want := []string{"Dining Room Left", "Dining Room Right", "Porch Light", "Den"}
	if got := names(reg.List()); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want declaration order %v", got, want)
	}

	porch, ok := reg.Get("Porch Light")
	if !ok {
		t.Fatal("Get(Porch Light) not found")
	}
	if porch.Type != TypeSwitch {
		t.Errorf("Porch Light type = %q, want %q", porch.Type, TypeSwitch)
	}

	den, _ := reg.Get("Den")
	if len(den.Tags) != 0 {
		t.Errorf("Den tags = %v, want empty", den.Tags)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    manifest.File
		wantErr error
	}{
		{
			name:    "devices absent",
			file:    manifest.File{},
			wantErr: manifest.ErrMissingDevices,
		},
		{
			name:    "unknown type",
			file:    manifest.File{Devices: []manifest.Device{{Name: "Fan", Type: "FAN"}}},
			wantErr: manifest.ErrUnknownDeviceType,
		},
		{
			name: "duplicate name",
			file: manifest.File{Devices: []manifest.Device{
				{Name: "Den", Type: "SHADE"},
				{Name: "Den", Type: "SWITCH"},
			}},
			wantErr: manifest.ErrDuplicateDevice,
		},
		{
			name:    "missing name",
			file:    manifest.File{Devices: []manifest.Device{{Type: "SHADE"}}},
			wantErr: manifest.ErrMissingName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.file)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, manifest.ErrConfig) {
				t.Errorf("Load() error = %v, want a ConfigError", err)
			}
		})
	}
}

func TestLoad_EmptyDevices(t *testing.T) {
	reg, err := Load(manifest.File{Devices: []manifest.Device{}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{in: "SHADE", want: TypeShade},
		{in: "shade", want: TypeShade},
		{in: " Switch ", want: TypeSwitch},
		{in: "dimmer", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseType_ErrorListsKnownTypes(t *testing.T) {
	_, err := ParseType("dimmer")
	if !errors.Is(err, manifest.ErrUnknownDeviceType) {
		t.Fatalf("ParseType(dimmer) error = %v, want ErrUnknownDeviceType", err)
	}
	for _, typ := range AllTypes() {
		if !strings.Contains(err.Error(), string(typ)) {
			t.Errorf("error %q does not list %s", err, typ)
		}
	}
}

func TestMatchAnyTag(t *testing.T) {
	reg, err := Load(testFile())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{name: "single tag", tags: []string{"dining_room"}, want: []string{"Dining Room Left", "Dining Room Right"}},
		{name: "any of several", tags: []string{"outdoor", "south"}, want: []string{"Dining Room Left", "Porch Light"}},
		{name: "no overlap", tags: []string{"attic"}, want: nil},
		{name: "empty list", tags: []string{}, want: nil},
		{name: "nil list", tags: nil, want: nil},
		{name: "case sensitive", tags: []string{"Dining_Room"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reg.MatchAnyTag(tt.tags)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(names(got), tt.want) {
				t.Errorf("MatchAnyTag(%v) = %v, want %v", tt.tags, names(got), tt.want)
			}
		})
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	reg, err := Load(testFile())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	d, _ := reg.Get("Dining Room Left")
	d.Tags[0] = "mutated"

	again, _ := reg.Get("Dining Room Left")
	if again.Tags[0] != "dining_room" {
		t.Errorf("registry state mutated through a returned copy: %v", again.Tags)
	}
}

func TestMustGet(t *testing.T) {
	reg, _ := NewRegistry(Device{Name: "Den", Type: TypeShade})

	if _, err := reg.MustGet("Den"); err != nil {
		t.Errorf("MustGet(Den) error = %v", err)
	}
	if _, err := reg.MustGet("Attic"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("MustGet(Attic) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestTagsAndByType(t *testing.T) {
	reg, _ := Load(testFile())

	if got, want := reg.Tags(), []string{"dining_room", "outdoor", "south"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Tags() = %v, want %v", got, want)
	}
	if got, want := names(reg.ByType(TypeSwitch)), []string{"Porch Light"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ByType(SWITCH) = %v, want %v", got, want)
	}
}
