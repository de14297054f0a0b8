package recorder

import (
	"errors"

	"github.com/tdaugaard/wow-recorder/internal/engine"
)

// previewName identifies this recorder's single preview surface on the host.
const previewName = "recorder-preview"

// SetupPreview attaches the engine's rendering surface to a region of a host
// window. Calling it again moves the existing surface instead of attaching a
// second one.
func (r *Recorder) SetupPreview(parentHandle uint64, bounds engine.Bounds) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized || r.state == StateShutDown {
		return ErrNotInitialized
	}

	if r.previewAttached {
		return r.engine.MovePreview(previewName, bounds)
	}
	if err := r.engine.AttachPreview(previewName, parentHandle, bounds); err != nil {
		return err
	}
	r.previewAttached = true
	r.logger.Debug("preview attached", "bounds", bounds)
	return nil
}

// ResizePreview keeps the attached preview surface sized to its host region.
func (r *Recorder) ResizePreview(bounds engine.Bounds) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateUninitialized || r.state == StateShutDown {
		return ErrNotInitialized
	}
	if !r.previewAttached {
		return errors.New("preview not attached")
	}
	return r.engine.MovePreview(previewName, bounds)
}

// TeardownPreview detaches the preview surface if one is attached.
func (r *Recorder) TeardownPreview() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.previewAttached {
		return nil
	}
	if err := r.engine.DetachPreview(previewName); err != nil {
		return err
	}
	r.previewAttached = false
	return nil
}
