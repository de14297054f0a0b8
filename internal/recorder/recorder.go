// Package recorder drives the native capture/encode engine through its
// lifecycle: initialize, configure, build the scene and source graph, start
// and stop recording against the engine's asynchronous signal protocol, and
// shut down. All engine-touching operations are serialized on one mutex.
package recorder

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tdaugaard/wow-recorder/internal/config"
	"github.com/tdaugaard/wow-recorder/internal/devices"
	"github.com/tdaugaard/wow-recorder/internal/engine"
	"github.com/tdaugaard/wow-recorder/internal/events"
	"github.com/tdaugaard/wow-recorder/internal/logging"
)

// Version is stamped at build time and reported to the engine host on init.
var Version = "dev"

// State is the orchestrator lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateConfigured
	StateRecording
	StateShutDown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateConfigured:
		return "configured"
	case StateRecording:
		return "recording"
	case StateShutDown:
		return "shut down"
	default:
		return "unknown"
	}
}

// maxTracks is the engine's hard limit on output track slots. Slot 1 is
// reserved for the mixed scene output.
const maxTracks = 64

// Recorder is the lifecycle orchestrator. It owns the process's single
// engine connection and all scene/source/track bookkeeping.
type Recorder struct {
	mu     sync.Mutex
	engine Engine
	enum   devices.Enumerator
	bus    *events.Bus
	logger *slog.Logger

	state State
	opts  config.Options

	signals    *signalQueue
	signalWait time.Duration

	// Scene graph handles, rebuilt on every reconfigure.
	scene       engine.SceneID
	sceneItem   engine.SceneItemID
	videoSource engine.SourceID
	baseRes     Resolution

	// Output track table indexed by slot−1. Audio sources live in slots
	// 2..maxTracks; a zero entry means the slot is free.
	trackSources [maxTracks]engine.SourceID
	nextSlot     int

	pollStop     chan struct{}
	pollInterval time.Duration

	previewAttached bool
}

// New creates a recorder around an engine connection, a device enumerator,
// and an event bus. The connection is not opened until Initialize.
func New(eng Engine, enum devices.Enumerator, bus *events.Bus, opts config.Options) *Recorder {
	return &Recorder{
		engine:       eng,
		enum:         enum,
		bus:          bus,
		logger:       logging.GetLogger("recorder"),
		opts:         opts,
		signals:      newSignalQueue(),
		signalWait:   defaultSignalWait,
		pollInterval: defaultPollInterval,
		nextSlot:     2,
	}
}

// Initialize opens the engine connection, wires the signal channel, and runs
// a full reconfigure. Calling it again while initialized is a no-op with a
// warning; redundant calls from callers are tolerated by design.
func (r *Recorder) Initialize(opts config.Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUninitialized {
		r.logger.Warn("already initialized, ignoring", "state", r.state.String())
		return nil
	}

	if err := r.engine.Connect(); err != nil {
		return fmt.Errorf("failed to connect to engine: %w", err)
	}

	code, err := r.engine.Init(opts.Engine.Locale, opts.Engine.DataDir, Version)
	if err != nil {
		r.disconnectAfterFailedInit()
		return fmt.Errorf("engine init request failed: %w", err)
	}
	if code != 0 {
		r.disconnectAfterFailedInit()
		return &InitError{Code: code, Reason: initReason(code)}
	}

	r.engine.OnOutputSignal(r.signals.push)
	r.engine.OnDisconnected(func() {
		r.logger.Error("engine host disconnected")
		r.publish(events.EngineDisconnectedEvent{Timestamp: now()})
	})

	r.opts = opts
	r.state = StateInitialized
	r.logger.Info("engine initialized", "locale", opts.Engine.Locale, "data_dir", opts.Engine.DataDir)

	return r.reconfigureLocked()
}

// disconnectAfterFailedInit tears the connection back down when engine init
// fails, so the recorder stays uninitialized and a later Initialize can
// reconnect cleanly.
func (r *Recorder) disconnectAfterFailedInit() {
	if err := r.engine.Disconnect(); err != nil {
		r.logger.Warn("failed to disconnect after init failure", "error", err)
	}
}

// Reconfigure replaces the stored options when opts is non-nil, then re-runs
// engine settings configuration, scene and source rebuild, and track
// allocation. Safe to call any number of times.
func (r *Recorder) Reconfigure(opts *config.Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized || r.state == StateShutDown {
		return ErrNotInitialized
	}
	if opts != nil {
		r.opts = *opts
	}
	return r.reconfigureLocked()
}

func (r *Recorder) reconfigureLocked() error {
	if err := r.configureOutputLocked(); err != nil {
		return err
	}
	if err := r.buildSceneLocked(); err != nil {
		return err
	}
	if err := r.allocateAudioLocked(); err != nil {
		return err
	}
	r.startSizePollLocked()

	r.state = StateConfigured
	r.publish(events.ReconfiguredEvent{
		CaptureMode: r.opts.CaptureMode,
		AudioTracks: r.nextSlot - 1,
		Timestamp:   now(),
	})
	r.logger.Info("reconfigured",
		"capture_mode", r.opts.CaptureMode,
		"output_resolution", r.opts.OutputResolution,
		"audio_tracks", r.nextSlot-1)
	return nil
}

// configureOutputLocked pushes encoding and output settings through the
// settings bridge.
func (r *Recorder) configureOutputLocked() error {
	encoder, err := r.resolveEncoderLocked()
	if err != nil {
		return err
	}

	writes := []struct {
		category  string
		parameter string
		value     interface{}
	}{
		{categoryOutput, paramMode, "Advanced"},
		{categoryOutput, paramRecFilePath, r.opts.BufferDir},
		{categoryOutput, paramRecFormat, "mp4"},
		{categoryOutput, paramRecEncoder, encoder},
		{categoryOutput, paramRecBitrate, r.opts.Bitrate},
		{categoryVideo, paramFPSCommon, strconv.Itoa(r.opts.FPS)},
	}
	for _, w := range writes {
		if err := r.setValue(w.category, w.parameter, w.value); err != nil {
			return err
		}
	}
	return nil
}

// resolveEncoderLocked returns the configured encoder, resolving "auto" to a
// hardware encoder when the engine offers one.
func (r *Recorder) resolveEncoderLocked() (string, error) {
	if r.opts.Encoder != "" && r.opts.Encoder != "auto" {
		return r.opts.Encoder, nil
	}

	available, err := r.availableValues(categoryOutput, subcategoryRec, paramRecEncoder)
	if err != nil {
		return "", err
	}
	if len(available) == 0 {
		return "obs_x264", nil
	}

	for _, name := range available {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "amd") || strings.Contains(lower, "nvenc") || strings.Contains(lower, "qsv") {
			r.logger.Debug("auto-selected hardware encoder", "encoder", name)
			return name, nil
		}
	}
	return available[0], nil
}

// Start issues the native start command and waits for the engine to confirm
// with the "start" signal. Any failure leaves the recorder out of the
// recording state; the caller must not assume recording is active.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized || r.state == StateShutDown {
		return ErrNotInitialized
	}

	r.logger.Info("starting recording")
	if err := r.engine.StartRecording(); err != nil {
		return fmt.Errorf("start command failed: %w", err)
	}
	if err := r.awaitSignal(engine.SignalStart); err != nil {
		return err
	}

	r.state = StateRecording
	r.publish(events.RecordingStartedEvent{Timestamp: now()})
	return nil
}

// Stop issues the native stop command and waits for the engine's "stopping",
// "stop", and "wrote" signals, in that order, each within its own wait
// window. A mismatch or timeout at any stage fails the whole call.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized || r.state == StateShutDown {
		return ErrNotInitialized
	}

	r.logger.Info("stopping recording")
	if err := r.engine.StopRecording(); err != nil {
		return fmt.Errorf("stop command failed: %w", err)
	}
	for _, expected := range []string{engine.SignalStopping, engine.SignalStop, engine.SignalWrote} {
		if err := r.awaitSignal(expected); err != nil {
			return err
		}
	}

	r.state = StateConfigured

	path, err := r.engine.LastRecordingPath()
	if err != nil {
		r.logger.Warn("could not query last recording path", "error", err)
	}
	r.publish(events.RecordingStoppedEvent{Path: path, Timestamp: now()})
	r.logger.Info("recording written", "path", path)
	return nil
}

// Shutdown detaches the signal callback and disconnects from the engine.
// Returns false without error when there is nothing to shut down.
func (r *Recorder) Shutdown() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized || r.state == StateShutDown {
		return false, nil
	}

	r.stopSizePollLocked()
	r.engine.OnOutputSignal(nil)

	if err := r.engine.Disconnect(); err != nil {
		return false, &ShutdownError{Err: err}
	}

	r.state = StateShutDown
	r.logger.Info("engine connection shut down")
	return true, nil
}

// State reports the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// AvailableResolutions returns the engine-supported base and output
// resolution candidates, keyed "Base" and "Output".
func (r *Recorder) AvailableResolutions() (map[string][]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized || r.state == StateShutDown {
		return nil, ErrNotInitialized
	}

	base, err := r.availableValues(categoryVideo, subcategoryUntitled, resolutionBase)
	if err != nil {
		return nil, err
	}
	output, err := r.availableValues(categoryVideo, subcategoryUntitled, resolutionOutput)
	if err != nil {
		return nil, err
	}
	return map[string][]string{resolutionBase: base, resolutionOutput: output}, nil
}

// AvailableEncoders returns the engine's recording encoder names.
func (r *Recorder) AvailableEncoders() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized || r.state == StateShutDown {
		return nil, ErrNotInitialized
	}
	return r.availableValues(categoryOutput, subcategoryRec, paramRecEncoder)
}

// LastRecordingPath returns the path of the most recently written file.
func (r *Recorder) LastRecordingPath() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized || r.state == StateShutDown {
		return "", ErrNotInitialized
	}
	return r.engine.LastRecordingPath()
}

// publish sends ev to the bus when one is wired.
func (r *Recorder) publish(ev events.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

func eventSignalTimeout(expected string) events.SignalTimeoutEvent {
	return events.SignalTimeoutEvent{Expected: expected, Timestamp: now()}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
