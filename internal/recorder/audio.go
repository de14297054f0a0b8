package recorder

import (
	"fmt"

	"github.com/tdaugaard/wow-recorder/internal/devices"
)

// Engine source kinds for audio capture, by device direction.
const (
	kindAudioInput  = "wasapi_input_capture"
	kindAudioOutput = "wasapi_output_capture"
)

// allocateAudioLocked clears all previously allocated audio sources, then
// creates one capture source per enumerated device. Inputs are processed
// before outputs; that ordering determines slot numbers and must hold for
// reconfigure to be deterministic. Each source gets its own track slot from 2
// upward plus the shared mix track in slot 1.
func (r *Recorder) allocateAudioLocked() error {
	if err := r.clearSourcesLocked(); err != nil {
		return err
	}

	inputs, err := r.enum.InputDevices()
	if err != nil {
		return fmt.Errorf("failed to enumerate input devices: %w", err)
	}
	outputs, err := r.enum.OutputDevices()
	if err != nil {
		return fmt.Errorf("failed to enumerate output devices: %w", err)
	}

	if err := r.allocateDevicesLocked(inputs, kindAudioInput, r.opts.AudioInputDevice); err != nil {
		return err
	}
	if err := r.allocateDevicesLocked(outputs, kindAudioOutput, r.opts.AudioOutputDevice); err != nil {
		return err
	}

	// Record tracks 1..lastSlot−1: slots 1..K produce the value 2^K − 1.
	recTracks := (uint64(1) << (r.nextSlot - 1)) - 1
	return r.setValue(categoryOutput, paramRecTracks, recTracks)
}

// allocateDevicesLocked creates a capture source per device starting at the
// current next free slot. Ownership of each source transfers to the output
// track table as soon as it is registered.
func (r *Recorder) allocateDevicesLocked(devs []devices.Device, kind, selector string) error {
	for _, dev := range devs {
		if r.nextSlot > maxTracks {
			r.logger.Warn("out of track slots, skipping remaining devices",
				"device", dev.Name, "direction", dev.Direction.String())
			return nil
		}
		slot := r.nextSlot

		source, err := r.engine.CreateSource(dev.Name, kind, map[string]interface{}{
			"device_id": dev.ID,
		})
		if err != nil {
			return fmt.Errorf("failed to create audio source for %q: %w", dev.Name, err)
		}

		if err := r.engine.SetTrackName(slot, dev.Name); err != nil {
			return err
		}

		// The shared mix track (bit 0) plus this slot's exclusive bit.
		mask := uint64(1) | uint64(1)<<(slot-1)
		if err := r.engine.SetSourceTracks(source, mask); err != nil {
			return err
		}

		muted := !devices.Selected(selector, dev)
		if err := r.engine.SetSourceMuted(source, muted); err != nil {
			return err
		}

		if err := r.engine.SetOutputSource(slot, source); err != nil {
			return err
		}

		r.trackSources[slot-1] = source
		r.nextSlot = slot + 1

		r.logger.Debug("audio source allocated",
			"device", dev.Name, "direction", dev.Direction.String(),
			"slot", slot, "muted", muted)
	}
	return nil
}

// clearSourcesLocked walks every possible track slot and releases whatever is
// registered there: clear the track name, detach the slot, free the source.
// Runs before every rebuild so no stale device sources survive a
// reconfigure. Failures are logged and skipped; a slot that cannot be freed
// must not block the remaining slots.
func (r *Recorder) clearSourcesLocked() error {
	for slot := 1; slot <= maxTracks; slot++ {
		source := r.trackSources[slot-1]
		if source == 0 {
			continue
		}

		if err := r.engine.SetTrackName(slot, ""); err != nil {
			r.logger.Warn("failed to clear track name", "slot", slot, "error", err)
		}
		if err := r.engine.SetOutputSource(slot, 0); err != nil {
			r.logger.Warn("failed to detach track slot", "slot", slot, "error", err)
		}
		if err := r.engine.ReleaseSource(source); err != nil {
			r.logger.Warn("failed to release audio source", "slot", slot, "error", err)
		}
		r.trackSources[slot-1] = 0
	}

	r.nextSlot = 2
	return r.setValue(categoryOutput, paramRecTracks, uint64(0))
}
