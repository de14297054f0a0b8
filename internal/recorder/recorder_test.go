package recorder

import (
	"errors"
	"testing"
	"time"

	"github.com/tdaugaard/wow-recorder/internal/config"
	"github.com/tdaugaard/wow-recorder/internal/devices"
	"github.com/tdaugaard/wow-recorder/internal/engine"
	"github.com/tdaugaard/wow-recorder/testutil"
)

func testOptions() config.Options {
	opts := config.Default()
	opts.BufferDir = "/tmp/wow-recorder-buffer"
	return opts
}

func testEnumerator() *testutil.FakeEnumerator {
	return &testutil.FakeEnumerator{
		Inputs: []devices.Device{
			{ID: "mic-1", Name: "Microphone", Direction: devices.Input},
			{ID: "mic-2", Name: "Headset Mic", Direction: devices.Input},
		},
		Outputs: []devices.Device{
			{ID: "spk-1", Name: "Speakers", Direction: devices.Output},
		},
	}
}

// newInitialized builds a recorder on the fake engine and runs Initialize,
// with short signal and poll windows so tests stay fast.
func newInitialized(t *testing.T, fake *testutil.FakeEngine, enum devices.Enumerator) *Recorder {
	t.Helper()
	r := New(fake, enum, nil, testOptions())
	r.signalWait = 100 * time.Millisecond
	r.pollInterval = 10 * time.Millisecond
	if err := r.Initialize(testOptions()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { _, _ = r.Shutdown() })
	return r
}

func TestInitialize_IsIdempotent(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	if got := r.State(); got != StateConfigured {
		t.Fatalf("state after initialize = %v", got)
	}
	// A redundant call is a warning, not an error, and must not reconnect.
	if err := r.Initialize(testOptions()); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
}

func TestInitialize_MapsEngineInitCodes(t *testing.T) {
	tests := []struct {
		code   int
		reason string
	}{
		{-2, "required engine files are missing"},
		{-5, "video subsystem failed to initialize"},
		{-99, "unknown error #-99"},
	}

	for _, tt := range tests {
		fake := testutil.NewFakeEngine()
		fake.InitCode = tt.code

		r := New(fake, testEnumerator(), nil, testOptions())
		err := r.Initialize(testOptions())

		var initErr *InitError
		if !errors.As(err, &initErr) {
			t.Fatalf("code %d: expected InitError, got %v", tt.code, err)
		}
		if initErr.Reason != tt.reason {
			t.Errorf("code %d: reason %q, want %q", tt.code, initErr.Reason, tt.reason)
		}
	}
}

func TestInitialize_DisconnectsOnInitFailure(t *testing.T) {
	fake := testutil.NewFakeEngine()
	fake.InitCode = -2

	r := New(fake, testEnumerator(), nil, testOptions())
	err := r.Initialize(testOptions())
	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitError, got %v", err)
	}

	// The failed attempt must not hold the connection open, and the
	// recorder must still be able to initialize once the engine recovers.
	if fake.Connected {
		t.Fatal("engine left connected after failed init")
	}
	if got := r.State(); got != StateUninitialized {
		t.Fatalf("state after failed init = %v", got)
	}

	fake.InitCode = 0
	if err := r.Initialize(testOptions()); err != nil {
		t.Fatalf("retry initialize: %v", err)
	}
	t.Cleanup(func() { _, _ = r.Shutdown() })
	if got := r.State(); got != StateConfigured {
		t.Fatalf("state after retry = %v", got)
	}
}

func TestStart_RequiresInitialize(t *testing.T) {
	r := New(testutil.NewFakeEngine(), testEnumerator(), nil, testOptions())
	if err := r.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if err := r.Stop(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if err := r.Reconfigure(nil); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestStart_AwaitsStartSignal(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	fake.EmitSignal(engine.SignalTypeRecording, engine.SignalStart)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := r.State(); got != StateRecording {
		t.Fatalf("state after start = %v", got)
	}
	if fake.StartCalls != 1 {
		t.Fatalf("engine start called %d times", fake.StartCalls)
	}
}

func TestStart_TimesOutWithoutSignal(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	err := r.Start()
	var timeoutErr *SignalTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected SignalTimeoutError, got %v", err)
	}
	if timeoutErr.Expected != engine.SignalStart {
		t.Fatalf("timeout for %q, want %q", timeoutErr.Expected, engine.SignalStart)
	}
	if got := r.State(); got == StateRecording {
		t.Fatal("recorder must not report recording after a failed start")
	}
}

func TestStart_RejectsForeignSignalType(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	fake.EmitSignal("streaming", engine.SignalStart)
	err := r.Start()
	var typeErr *UnexpectedSignalTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected UnexpectedSignalTypeError, got %v", err)
	}
}

func TestStop_RequiresStrictSignalOrder(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	fake.EmitSignal(engine.SignalTypeRecording, engine.SignalStart)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// "stop" arriving before "stopping" is an engine-level fault and must
	// fail the whole call.
	fake.EmitSignal(engine.SignalTypeRecording, engine.SignalStop)
	fake.EmitSignal(engine.SignalTypeRecording, engine.SignalStopping)

	err := r.Stop()
	var valueErr *UnexpectedSignalValueError
	if !errors.As(err, &valueErr) {
		t.Fatalf("expected UnexpectedSignalValueError, got %v", err)
	}
	if valueErr.Expected != engine.SignalStopping || valueErr.Got != engine.SignalStop {
		t.Fatalf("got %+v", valueErr)
	}
}

func TestStop_SucceedsOnExactSequence(t *testing.T) {
	fake := testutil.NewFakeEngine()
	fake.LastPath = "/videos/2v2-nagrand.mp4"
	r := newInitialized(t, fake, testEnumerator())

	fake.EmitSignal(engine.SignalTypeRecording, engine.SignalStart)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	fake.EmitSignal(engine.SignalTypeRecording, engine.SignalStopping)
	fake.EmitSignal(engine.SignalTypeRecording, engine.SignalStop)
	fake.EmitSignal(engine.SignalTypeRecording, engine.SignalWrote)

	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := r.State(); got != StateConfigured {
		t.Fatalf("state after stop = %v", got)
	}

	path, err := r.LastRecordingPath()
	if err != nil || path != "/videos/2v2-nagrand.mp4" {
		t.Fatalf("last recording path = %q, %v", path, err)
	}
}

func TestStop_TimesOutMidSequence(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	fake.EmitSignal(engine.SignalTypeRecording, engine.SignalStart)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Only the first of the three stop signals arrives.
	fake.EmitSignal(engine.SignalTypeRecording, engine.SignalStopping)

	err := r.Stop()
	var timeoutErr *SignalTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected SignalTimeoutError, got %v", err)
	}
	if timeoutErr.Expected != engine.SignalStop {
		t.Fatalf("timed out on %q, want %q", timeoutErr.Expected, engine.SignalStop)
	}
}

func TestReconfigure_DoesNotLeakAcrossRepeatedCalls(t *testing.T) {
	fake := testutil.NewFakeEngine()
	enum := testEnumerator()
	r := newInitialized(t, fake, enum)

	for i := 0; i < 5; i++ {
		if err := r.Reconfigure(nil); err != nil {
			t.Fatalf("reconfigure %d: %v", i, err)
		}
	}

	// One video source plus one audio source per device, regardless of how
	// many times the graph was rebuilt.
	wantLive := 1 + len(enum.Inputs) + len(enum.Outputs)
	if got := fake.LiveSourceCount(); got != wantLive {
		t.Fatalf("%d live sources after repeated reconfigure, want %d", got, wantLive)
	}
	// Slot 1 (scene) plus one slot per audio device.
	if got := fake.AssignedSlots(); got != 1+len(enum.Inputs)+len(enum.Outputs) {
		t.Fatalf("%d assigned slots, want %d", got, 1+len(enum.Inputs)+len(enum.Outputs))
	}
}

func TestReconfigure_ReplacesOptions(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	fresh := testOptions()
	fresh.CaptureMode = config.ModeWindowCapture
	if err := r.Reconfigure(&fresh); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}

	found := false
	for _, src := range fake.Sources {
		if !src.Released && src.Kind == "window_capture" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a live window_capture source after mode change")
	}
}

func TestReconfigure_DisplayNotFound(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	bad := testOptions()
	bad.DisplayIndex = 4

	err := r.Reconfigure(&bad)
	var notFound *DisplayNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected DisplayNotFoundError, got %v", err)
	}
	if notFound.Index != 4 {
		t.Fatalf("error carries index %d, want 4", notFound.Index)
	}
}

func TestReconfigure_InvalidCaptureMode(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	bad := testOptions()
	bad.CaptureMode = "hologram_capture"

	err := r.Reconfigure(&bad)
	var invalid *InvalidCaptureModeError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCaptureModeError, got %v", err)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	ok, err := r.Shutdown()
	if err != nil || !ok {
		t.Fatalf("first shutdown: ok=%v err=%v", ok, err)
	}
	ok, err = r.Shutdown()
	if err != nil || ok {
		t.Fatalf("second shutdown: ok=%v err=%v, want false and no error", ok, err)
	}
	if got := r.State(); got != StateShutDown {
		t.Fatalf("state after shutdown = %v", got)
	}
}

func TestShutdown_BeforeInitialize(t *testing.T) {
	r := New(testutil.NewFakeEngine(), testEnumerator(), nil, testOptions())
	ok, err := r.Shutdown()
	if err != nil || ok {
		t.Fatalf("shutdown before initialize: ok=%v err=%v", ok, err)
	}
}

func TestShutdown_WrapsDisconnectFailure(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())
	fake.DisconnectErr = errors.New("socket already torn down")

	_, err := r.Shutdown()
	var shutdownErr *ShutdownError
	if !errors.As(err, &shutdownErr) {
		t.Fatalf("expected ShutdownError, got %v", err)
	}
	if !errors.Is(err, fake.DisconnectErr) {
		t.Fatal("wrapped error lost the cause")
	}
}

func TestResolveEncoder_Auto(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := New(fake, testEnumerator(), nil, testOptions())

	// The fake offers obs_x264 first; auto must still land on hardware.
	name, err := r.resolveEncoderLocked()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if name != "jim_nvenc" {
		t.Fatalf("auto encoder = %q, want jim_nvenc", name)
	}

	explicit := testOptions()
	explicit.Encoder = "obs_x264"
	r = New(fake, testEnumerator(), nil, explicit)
	name, err = r.resolveEncoderLocked()
	if err != nil || name != "obs_x264" {
		t.Fatalf("explicit encoder = %q, %v", name, err)
	}
}

func TestAvailableResolutions(t *testing.T) {
	fake := testutil.NewFakeEngine()
	r := newInitialized(t, fake, testEnumerator())

	res, err := r.AvailableResolutions()
	if err != nil {
		t.Fatalf("available resolutions: %v", err)
	}
	if len(res["Base"]) != 4 || len(res["Output"]) != 3 {
		t.Fatalf("got %v", res)
	}
}
