package recorder

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolution is a (width, height) pair in pixels.
type Resolution struct {
	Width  int
	Height int
}

// String renders the resolution in the engine's "WxH" form.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution parses a "WxH" string.
func ParseResolution(s string) (Resolution, error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return Resolution{}, fmt.Errorf("resolution %q is not of the form WxH", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Resolution{}, fmt.Errorf("bad width in resolution %q: %w", s, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Resolution{}, fmt.Errorf("bad height in resolution %q: %w", s, err)
	}
	return Resolution{Width: width, Height: height}, nil
}

// ClosestResolution returns the candidate closest to target under the metric
// |2(tw−w) + 4(th−h)|. The asymmetric weights keep transposed resolutions
// (1920x1080 vs 1080x1920) from scoring identically. Ties go to the earlier
// candidate. Candidates that fail to parse are skipped.
func ClosestResolution(candidates []string, target Resolution) (string, error) {
	best := ""
	bestDist := 0
	found := false

	for _, candidate := range candidates {
		res, err := ParseResolution(candidate)
		if err != nil {
			continue
		}
		dist := 2*(target.Width-res.Width) + 4*(target.Height-res.Height)
		if dist < 0 {
			dist = -dist
		}
		if !found || dist < bestDist {
			best = candidate
			bestDist = dist
			found = true
		}
	}

	if !found {
		return "", ErrNoResolutionsAvailable
	}
	return best, nil
}

// Resolution parameter names in the Video settings category.
const (
	resolutionBase   = "Base"
	resolutionOutput = "Output"
)

// setEngineResolution snaps res to the nearest engine-supported value for the
// given parameter ("Base" or "Output") and writes it through the settings
// bridge.
func (r *Recorder) setEngineResolution(res Resolution, parameter string) error {
	candidates, err := r.availableValues(categoryVideo, subcategoryUntitled, parameter)
	if err != nil {
		return err
	}

	match, err := ClosestResolution(candidates, res)
	if err != nil {
		return fmt.Errorf("no %s resolution candidates: %w", parameter, err)
	}

	r.logger.Debug("matched resolution", "parameter", parameter, "target", res.String(), "match", match)
	return r.setValue(categoryVideo, parameter, match)
}
