package engine

import (
	"encoding/json"
	"fmt"
)

// Handle types returned by the host factories. Zero is never a valid handle.
type (
	SourceID    uint64
	SceneID     uint64
	SceneItemID uint64
)

// Init initializes the engine with locale, data directory, and client
// version, returning the host's raw result code. Zero means success; the
// caller maps negative codes to human-readable reasons.
func (c *Client) Init(locale, dataDir, version string) (int, error) {
	resp, err := c.sendRequest("Init", map[string]interface{}{
		"locale":  locale,
		"dataDir": dataDir,
		"version": version,
	})
	if err != nil {
		return 0, err
	}

	var data struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(resp.ResponseData, &data); err != nil {
		return 0, fmt.Errorf("failed to parse init response: %w", err)
	}
	return data.Code, nil
}

// GetCategorySettings fetches the full settings tree for a category.
func (c *Client) GetCategorySettings(category string) (CategorySettings, error) {
	resp, err := c.sendRequest("GetCategorySettings", map[string]interface{}{
		"category": category,
	})
	if err != nil {
		return CategorySettings{}, err
	}

	var settings CategorySettings
	if err := json.Unmarshal(resp.ResponseData, &settings); err != nil {
		return CategorySettings{}, fmt.Errorf("failed to parse settings for %q: %w", category, err)
	}
	return settings, nil
}

// SetCategorySettings writes a whole category tree back to the host.
func (c *Client) SetCategorySettings(category string, settings CategorySettings) error {
	_, err := c.sendRequest("SetCategorySettings", map[string]interface{}{
		"category":      category,
		"subCategories": settings.SubCategories,
	})
	return err
}

// CreateSource creates a source of the given kind and returns its handle.
func (c *Client) CreateSource(name, kind string, settings map[string]interface{}) (SourceID, error) {
	resp, err := c.sendRequest("CreateSource", map[string]interface{}{
		"name":     name,
		"kind":     kind,
		"settings": settings,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create source %q: %w", name, err)
	}

	var data struct {
		SourceID SourceID `json:"sourceId"`
	}
	if err := json.Unmarshal(resp.ResponseData, &data); err != nil {
		return 0, fmt.Errorf("failed to parse create source response: %w", err)
	}
	return data.SourceID, nil
}

// ReleaseSource frees a source handle on the host.
func (c *Client) ReleaseSource(id SourceID) error {
	_, err := c.sendRequest("ReleaseSource", map[string]interface{}{"sourceId": id})
	return err
}

// UpdateSourceSettings replaces a source's settings map.
func (c *Client) UpdateSourceSettings(id SourceID, settings map[string]interface{}) error {
	_, err := c.sendRequest("UpdateSourceSettings", map[string]interface{}{
		"sourceId": id,
		"settings": settings,
	})
	return err
}

// SetSourceMuted mutes or unmutes an audio source.
func (c *Client) SetSourceMuted(id SourceID, muted bool) error {
	_, err := c.sendRequest("SetSourceMuted", map[string]interface{}{
		"sourceId": id,
		"muted":    muted,
	})
	return err
}

// SetSourceTracks assigns the output track bitmask for an audio source.
func (c *Client) SetSourceTracks(id SourceID, tracks uint64) error {
	_, err := c.sendRequest("SetSourceTracks", map[string]interface{}{
		"sourceId": id,
		"tracks":   tracks,
	})
	return err
}

// GetSourceDimensions reports the source's current native pixel size. Both
// dimensions are zero until the source has produced its first frame.
func (c *Client) GetSourceDimensions(id SourceID) (int, int, error) {
	resp, err := c.sendRequest("GetSourceDimensions", map[string]interface{}{"sourceId": id})
	if err != nil {
		return 0, 0, err
	}

	var data struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.Unmarshal(resp.ResponseData, &data); err != nil {
		return 0, 0, fmt.Errorf("failed to parse source dimensions: %w", err)
	}
	return data.Width, data.Height, nil
}

// CreateScene creates a named scene and returns its handle.
func (c *Client) CreateScene(name string) (SceneID, error) {
	resp, err := c.sendRequest("CreateScene", map[string]interface{}{"name": name})
	if err != nil {
		return 0, fmt.Errorf("failed to create scene %q: %w", name, err)
	}

	var data struct {
		SceneID SceneID `json:"sceneId"`
	}
	if err := json.Unmarshal(resp.ResponseData, &data); err != nil {
		return 0, fmt.Errorf("failed to parse create scene response: %w", err)
	}
	return data.SceneID, nil
}

// ReleaseScene frees a scene and all its items on the host. Sources wrapped
// by the items are not released; they have their own handles.
func (c *Client) ReleaseScene(id SceneID) error {
	_, err := c.sendRequest("ReleaseScene", map[string]interface{}{"sceneId": id})
	return err
}

// AddSceneItem wraps a source in a scene item and returns the item handle.
func (c *Client) AddSceneItem(scene SceneID, source SourceID) (SceneItemID, error) {
	resp, err := c.sendRequest("AddSceneItem", map[string]interface{}{
		"sceneId":  scene,
		"sourceId": source,
	})
	if err != nil {
		return 0, err
	}

	var data struct {
		ItemID SceneItemID `json:"itemId"`
	}
	if err := json.Unmarshal(resp.ResponseData, &data); err != nil {
		return 0, fmt.Errorf("failed to parse add scene item response: %w", err)
	}
	return data.ItemID, nil
}

// SetSceneItemScale sets the item's render scale on both axes.
func (c *Client) SetSceneItemScale(item SceneItemID, x, y float64) error {
	_, err := c.sendRequest("SetSceneItemScale", map[string]interface{}{
		"itemId": item,
		"x":      x,
		"y":      y,
	})
	return err
}

// SetOutputSource binds a source (or scene) to an output slot. Passing source
// id zero detaches the slot.
func (c *Client) SetOutputSource(slot int, source SourceID) error {
	_, err := c.sendRequest("SetOutputSource", map[string]interface{}{
		"slot":     slot,
		"sourceId": source,
	})
	return err
}

// SetTrackName labels an audio track in the output file.
func (c *Client) SetTrackName(track int, name string) error {
	_, err := c.sendRequest("SetTrackName", map[string]interface{}{
		"track": track,
		"name":  name,
	})
	return err
}

// StartRecording issues the start command. Completion is reported
// asynchronously via the "start" output signal.
func (c *Client) StartRecording() error {
	_, err := c.sendRequest("StartRecording", nil)
	return err
}

// StopRecording issues the stop command. Completion is reported
// asynchronously via the "stopping", "stop", and "wrote" output signals.
func (c *Client) StopRecording() error {
	_, err := c.sendRequest("StopRecording", nil)
	return err
}

// LastRecordingPath returns the path of the most recently written file.
func (c *Client) LastRecordingPath() (string, error) {
	resp, err := c.sendRequest("GetLastRecording", nil)
	if err != nil {
		return "", err
	}

	var data struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(resp.ResponseData, &data); err != nil {
		return "", fmt.Errorf("failed to parse last recording response: %w", err)
	}
	return data.Path, nil
}

// ListDisplays enumerates physical displays known to the host.
func (c *Client) ListDisplays() ([]Display, error) {
	resp, err := c.sendRequest("ListDisplays", nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Displays []Display `json:"displays"`
	}
	if err := json.Unmarshal(resp.ResponseData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse display list: %w", err)
	}
	return data.Displays, nil
}

// AttachPreview attaches a named rendering surface to a native window handle
// at the given pixel bounds.
func (c *Client) AttachPreview(name string, parentHandle uint64, b Bounds) error {
	_, err := c.sendRequest("AttachPreview", map[string]interface{}{
		"name":         name,
		"parentHandle": parentHandle,
		"x":            b.X,
		"y":            b.Y,
		"width":        b.Width,
		"height":       b.Height,
	})
	return err
}

// MovePreview resizes and moves a previously attached preview surface.
func (c *Client) MovePreview(name string, b Bounds) error {
	_, err := c.sendRequest("MovePreview", map[string]interface{}{
		"name":   name,
		"x":      b.X,
		"y":      b.Y,
		"width":  b.Width,
		"height": b.Height,
	})
	return err
}

// DetachPreview removes a preview surface.
func (c *Client) DetachPreview(name string) error {
	_, err := c.sendRequest("DetachPreview", map[string]interface{}{"name": name})
	return err
}
