package recorder

import (
	"fmt"
	"time"

	"github.com/tdaugaard/wow-recorder/internal/config"
	"github.com/tdaugaard/wow-recorder/internal/engine"
)

// defaultPollInterval is how often the scene item scale is checked against
// the source's reported pixel size.
const defaultPollInterval = 5 * time.Second

// Window capture target: title, window class, and executable, colon-joined
// the way the engine expects.
const gameWindow = "World of Warcraft:GxWindowClass:Wow.exe"

// Window match priority values understood by the engine.
const windowPriorityTitleExact = 1

// buildSceneLocked tears down the previous scene graph and builds a fresh
// one: a single video capture source wrapped in one scene item at unit scale,
// with the scene bound to output slot 1 as the mixed output.
func (r *Recorder) buildSceneLocked() error {
	r.stopSizePollLocked()
	r.releaseSceneLocked()

	source, baseRes, err := r.createVideoSourceLocked()
	if err != nil {
		return err
	}
	r.videoSource = source
	r.baseRes = baseRes

	outputRes, err := ParseResolution(r.opts.OutputResolution)
	if err != nil {
		return err
	}
	if err := r.setEngineResolution(outputRes, resolutionOutput); err != nil {
		return err
	}
	if err := r.setEngineResolution(baseRes, resolutionBase); err != nil {
		return err
	}

	scene, err := r.engine.CreateScene("main")
	if err != nil {
		return err
	}
	r.scene = scene

	item, err := r.engine.AddSceneItem(scene, source)
	if err != nil {
		return err
	}
	r.sceneItem = item

	if err := r.engine.SetSceneItemScale(item, 1, 1); err != nil {
		return err
	}

	// Scene handles share the source handle namespace on the host.
	if err := r.engine.SetOutputSource(1, engine.SourceID(scene)); err != nil {
		return err
	}

	r.logger.Debug("scene rebuilt", "base_resolution", baseRes.String(), "source", source)
	return nil
}

// createVideoSourceLocked creates the single video capture source for the
// configured mode and returns it with the base resolution it implies.
func (r *Recorder) createVideoSourceLocked() (engine.SourceID, Resolution, error) {
	switch r.opts.CaptureMode {
	case config.ModeDisplayCapture:
		return r.createDisplayCaptureLocked()
	case config.ModeWindowCapture:
		return r.createWindowCaptureLocked()
	default:
		return 0, Resolution{}, &InvalidCaptureModeError{Mode: r.opts.CaptureMode}
	}
}

// createDisplayCaptureLocked resolves the configured 1-based display index to
// a physical display and captures it. The display's physical size becomes the
// base resolution.
func (r *Recorder) createDisplayCaptureLocked() (engine.SourceID, Resolution, error) {
	displays, err := r.engine.ListDisplays()
	if err != nil {
		return 0, Resolution{}, fmt.Errorf("failed to enumerate displays: %w", err)
	}

	index := r.opts.DisplayIndex - 1
	var display *engine.Display
	for i := range displays {
		if displays[i].Index == index {
			display = &displays[i]
			break
		}
	}
	if display == nil {
		return 0, Resolution{}, &DisplayNotFoundError{Index: r.opts.DisplayIndex}
	}

	source, err := r.engine.CreateSource("video", "monitor_capture", map[string]interface{}{
		"monitor":        index,
		"capture_cursor": true,
	})
	if err != nil {
		return 0, Resolution{}, err
	}

	return source, Resolution{Width: display.Width, Height: display.Height}, nil
}

// createWindowCaptureLocked captures the game window by its title, class, and
// executable. No physical display constrains the capture, so the base
// resolution equals the configured output resolution.
func (r *Recorder) createWindowCaptureLocked() (engine.SourceID, Resolution, error) {
	source, err := r.engine.CreateSource("video", "window_capture", map[string]interface{}{
		"window":             gameWindow,
		"priority":           windowPriorityTitleExact,
		"cursor":             true,
		"allow_transparency": true,
	})
	if err != nil {
		return 0, Resolution{}, err
	}

	outputRes, err := ParseResolution(r.opts.OutputResolution)
	if err != nil {
		return 0, Resolution{}, err
	}
	return source, outputRes, nil
}

// releaseSceneLocked frees the previous scene, item, and video source so a
// rebuild never leaks native handles.
func (r *Recorder) releaseSceneLocked() {
	if r.scene != 0 {
		if err := r.engine.SetOutputSource(1, 0); err != nil {
			r.logger.Warn("failed to detach scene from output", "error", err)
		}
		if err := r.engine.ReleaseScene(r.scene); err != nil {
			r.logger.Warn("failed to release scene", "error", err)
		}
		r.scene = 0
		r.sceneItem = 0
	}
	if r.videoSource != 0 {
		if err := r.engine.ReleaseSource(r.videoSource); err != nil {
			r.logger.Warn("failed to release video source", "error", err)
		}
		r.videoSource = 0
	}
}

// startSizePollLocked replaces the previous size poll with a fresh one bound
// to the current scene graph. Polls are superseded, never stacked.
func (r *Recorder) startSizePollLocked() {
	r.stopSizePollLocked()

	stop := make(chan struct{})
	r.pollStop = stop
	go r.pollSourceSize(r.videoSource, r.sceneItem, r.baseRes, stop)
}

func (r *Recorder) stopSizePollLocked() {
	if r.pollStop != nil {
		close(r.pollStop)
		r.pollStop = nil
	}
}

// pollSourceSize keeps the rendered output matching the declared base
// resolution when the source's native capture size changes, e.g. when the
// game window is resized. It rescales the scene item uniformly by
// base.Width / reportedWidth whenever the reported width changes to a
// non-zero value.
func (r *Recorder) pollSourceSize(source engine.SourceID, item engine.SceneItemID, base Resolution, stop <-chan struct{}) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	lastWidth := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		width, _, err := r.engine.GetSourceDimensions(source)
		if err != nil {
			r.logger.Debug("size poll failed", "error", err)
			continue
		}
		if width == 0 || width == lastWidth {
			continue
		}

		scale := float64(base.Width) / float64(width)
		if err := r.engine.SetSceneItemScale(item, scale, scale); err != nil {
			r.logger.Warn("failed to rescale scene item", "error", err)
			continue
		}
		r.logger.Debug("scene item rescaled", "source_width", width, "scale", scale)
		lastWidth = width
	}
}
