package recorder

import (
	"testing"

	"github.com/tdaugaard/wow-recorder/internal/config"
	"github.com/tdaugaard/wow-recorder/testutil"
)

func TestSetValue_WritesOnlyOnChange(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := New(fake, &testutil.FakeEnumerator{}, nil, config.Default())

	if err := r.setValue("Output", "RecFormat", "mp4"); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := r.setValue("Output", "RecFormat", "mp4"); err != nil {
		t.Fatalf("second write: %v", err)
	}

	if got := fake.SettingsWrites["Output"]; got != 1 {
		t.Fatalf("expected exactly 1 underlying write, got %d", got)
	}
	if got := fake.CurrentValue("Output", "RecFormat"); got != "mp4" {
		t.Fatalf("value not persisted, got %v", got)
	}
}

func TestSetValue_NumericComparisonSurvivesJSONRoundTrip(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := New(fake, &testutil.FakeEnumerator{}, nil, config.Default())

	if err := r.setValue("Output", "RecBitrate", 12000); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The fake returns what was stored; an engine returns float64 after a
	// JSON round trip. Either way a repeat write must be a no-op.
	if err := r.setValue("Output", "RecBitrate", 12000); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if got := fake.SettingsWrites["Output"]; got != 1 {
		t.Fatalf("expected 1 write, got %d", got)
	}
}

func TestSetValue_MissingParameterIsSoftMiss(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := New(fake, &testutil.FakeEnumerator{}, nil, config.Default())

	if err := r.setValue("Output", "NoSuchParameter", "x"); err != nil {
		t.Fatalf("missing parameter must not error: %v", err)
	}
	if got := fake.SettingsWrites["Output"]; got != 0 {
		t.Fatalf("missing parameter must not write, got %d writes", got)
	}
}

func TestSetValue_UnknownCategoryErrors(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := New(fake, &testutil.FakeEnumerator{}, nil, config.Default())

	if err := r.setValue("Bogus", "Mode", "x"); err == nil {
		t.Fatal("expected transport error for unknown category")
	}
}

func TestAvailableValues(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := New(fake, &testutil.FakeEnumerator{}, nil, config.Default())

	values, err := r.availableValues("Output", "Recording", "RecEncoder")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"obs_x264", "jim_nvenc", "amd_amf_h264"}
	if len(values) != len(want) {
		t.Fatalf("got %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("order differs at %d: got %v, want %v", i, values, want)
		}
	}

	// Missing entries yield an empty slice, never an error.
	values, err = r.availableValues("Output", "Recording", "NoSuchParameter")
	if err != nil || len(values) != 0 {
		t.Fatalf("missing parameter: got %v, %v", values, err)
	}
	values, err = r.availableValues("Output", "NoSuchSubcategory", "RecEncoder")
	if err != nil || len(values) != 0 {
		t.Fatalf("missing subcategory: got %v, %v", values, err)
	}
}
