package recorder

import (
	"fmt"
)

// Settings tree locations used by the recorder.
const (
	categoryOutput      = "Output"
	categoryVideo       = "Video"
	subcategoryUntitled = "Untitled"
	subcategoryRec      = "Recording"

	paramMode        = "Mode"
	paramRecFilePath = "RecFilePath"
	paramRecFormat   = "RecFormat"
	paramRecEncoder  = "RecEncoder"
	paramRecBitrate  = "RecBitrate"
	paramRecTracks   = "RecTracks"
	paramFPSCommon   = "FPSCommon"
)

// setValue updates one parameter in the engine settings tree, writing the
// category back only when the value actually changed. A parameter the engine
// does not expose is a soft miss: logged at debug, not an error, so newer and
// older engine builds with different parameter names keep working.
func (r *Recorder) setValue(category, parameter string, value interface{}) error {
	settings, err := r.engine.GetCategorySettings(category)
	if err != nil {
		return fmt.Errorf("failed to read %s settings: %w", category, err)
	}

	found := false
	changed := false
	for si := range settings.SubCategories {
		params := settings.SubCategories[si].Parameters
		for pi := range params {
			if params[pi].Name != parameter {
				continue
			}
			found = true
			// Values round-trip through JSON, so ints come back as float64;
			// compare on the printed form.
			if fmt.Sprint(params[pi].CurrentValue) != fmt.Sprint(value) {
				params[pi].CurrentValue = value
				changed = true
			}
		}
	}

	if !found {
		r.logger.Debug("engine does not expose parameter, skipping",
			"category", category, "parameter", parameter)
		return nil
	}
	if !changed {
		return nil
	}

	if err := r.engine.SetCategorySettings(category, settings); err != nil {
		return fmt.Errorf("failed to write %s settings: %w", category, err)
	}
	r.logger.Debug("engine setting updated", "category", category, "parameter", parameter, "value", value)
	return nil
}

// availableValues returns the permitted values for a parameter in host order.
// A missing category, subcategory, or parameter yields an empty slice with a
// warning, never an error; errors are reserved for transport failures.
func (r *Recorder) availableValues(category, subcategory, parameter string) ([]string, error) {
	settings, err := r.engine.GetCategorySettings(category)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s settings: %w", category, err)
	}

	for _, sub := range settings.SubCategories {
		if sub.Name != subcategory {
			continue
		}
		for _, param := range sub.Parameters {
			if param.Name == parameter {
				return param.Values, nil
			}
		}
	}

	r.logger.Warn("no available values found",
		"category", category, "subcategory", subcategory, "parameter", parameter)
	return nil, nil
}
