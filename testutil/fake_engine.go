// Package testutil provides shared test helpers: assertions, an in-memory
// fake of the engine boundary, and a fake audio device enumerator.
package testutil

import (
	"errors"
	"sync"

	"github.com/tdaugaard/wow-recorder/internal/devices"
	"github.com/tdaugaard/wow-recorder/internal/engine"
)

// FakeSource records everything the recorder did to one created source.
type FakeSource struct {
	Name     string
	Kind     string
	Settings map[string]interface{}
	Muted    bool
	Tracks   uint64
	Released bool
}

// FakeEngine is an in-memory engine host for orchestrator tests. It tracks
// enough bookkeeping to assert handle leak-freedom, track assignment, and
// settings write counts.
type FakeEngine struct {
	mu sync.Mutex

	Connected     bool
	ConnectErr    error
	DisconnectErr error
	InitCode      int
	InitErr       error

	signalHandler     func(engine.Signal)
	disconnectHandler func()

	Settings       map[string]engine.CategorySettings
	SettingsWrites map[string]int

	nextHandle uint64
	Sources    map[engine.SourceID]*FakeSource
	Scenes     map[engine.SceneID]bool // true while live
	SceneItems map[engine.SceneItemID][2]float64
	OutputSlot map[int]engine.SourceID
	TrackNames map[int]string

	Displays   []engine.Display
	SourceDims map[engine.SourceID][2]int
	LastPath   string

	StartErr   error
	StopErr    error
	StartCalls int
	StopCalls  int

	Previews map[string]engine.Bounds
}

// NewFakeEngine returns a fake with a populated default settings tree, one
// 2560x1440 display, and no devices attached.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		Settings:       DefaultEngineSettings(),
		SettingsWrites: make(map[string]int),
		Sources:        make(map[engine.SourceID]*FakeSource),
		Scenes:         make(map[engine.SceneID]bool),
		SceneItems:     make(map[engine.SceneItemID][2]float64),
		OutputSlot:     make(map[int]engine.SourceID),
		TrackNames:     make(map[int]string),
		SourceDims:     make(map[engine.SourceID][2]int),
		Previews:       make(map[string]engine.Bounds),
		Displays: []engine.Display{
			{Index: 0, Width: 2560, Height: 1440},
		},
	}
}

// DefaultEngineSettings builds the settings tree a stock engine host exposes.
func DefaultEngineSettings() map[string]engine.CategorySettings {
	return map[string]engine.CategorySettings{
		"Output": {
			SubCategories: []engine.SubCategory{
				{
					Name: "Recording",
					Parameters: []engine.Parameter{
						{Name: "Mode", CurrentValue: "Simple"},
						{Name: "RecFilePath", CurrentValue: ""},
						{Name: "RecFormat", CurrentValue: "mkv"},
						{Name: "RecEncoder", CurrentValue: "obs_x264",
							Values: []string{"obs_x264", "jim_nvenc", "amd_amf_h264"}},
						{Name: "RecBitrate", CurrentValue: 2500},
						{Name: "RecTracks", CurrentValue: 1},
					},
				},
			},
		},
		"Video": {
			SubCategories: []engine.SubCategory{
				{
					Name: "Untitled",
					Parameters: []engine.Parameter{
						{Name: "Base", CurrentValue: "1920x1080",
							Values: []string{"1280x720", "1920x1080", "2560x1440", "3840x2160"}},
						{Name: "Output", CurrentValue: "1920x1080",
							Values: []string{"1280x720", "1920x1080", "2560x1440"}},
						{Name: "FPSCommon", CurrentValue: "30"},
					},
				},
			},
		},
	}
}

// EmitSignal delivers an output signal to the registered callback, as the
// host's asynchronous event would.
func (f *FakeEngine) EmitSignal(sigType, sigValue string) {
	f.mu.Lock()
	handler := f.signalHandler
	f.mu.Unlock()
	if handler != nil {
		handler(engine.Signal{Type: sigType, Signal: sigValue})
	}
}

// LiveSourceCount reports how many created sources have not been released.
func (f *FakeEngine) LiveSourceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, src := range f.Sources {
		if !src.Released {
			n++
		}
	}
	return n
}

// AssignedSlots reports how many output slots currently hold a source.
func (f *FakeEngine) AssignedSlots() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.OutputSlot {
		if id != 0 {
			n++
		}
	}
	return n
}

// SetSourceDims changes the size a source reports, as a window resize would.
func (f *FakeEngine) SetSourceDims(id engine.SourceID, width, height int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SourceDims[id] = [2]int{width, height}
}

// SceneItemScale reads back the scale applied to a scene item.
func (f *FakeEngine) SceneItemScale(id engine.SceneItemID) [2]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SceneItems[id]
}

// CurrentValue fetches one parameter value from the fake settings tree.
func (f *FakeEngine) CurrentValue(category, parameter string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.Settings[category].SubCategories {
		for _, p := range sub.Parameters {
			if p.Name == parameter {
				return p.CurrentValue
			}
		}
	}
	return nil
}

func (f *FakeEngine) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.Connected = true
	return nil
}

func (f *FakeEngine) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DisconnectErr != nil {
		return f.DisconnectErr
	}
	f.Connected = false
	return nil
}

func (f *FakeEngine) Init(locale, dataDir, version string) (int, error) {
	if f.InitErr != nil {
		return 0, f.InitErr
	}
	return f.InitCode, nil
}

func (f *FakeEngine) OnOutputSignal(handler func(engine.Signal)) {
	f.mu.Lock()
	f.signalHandler = handler
	f.mu.Unlock()
}

func (f *FakeEngine) OnDisconnected(handler func()) {
	f.mu.Lock()
	f.disconnectHandler = handler
	f.mu.Unlock()
}

func (f *FakeEngine) GetCategorySettings(category string) (engine.CategorySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	settings, ok := f.Settings[category]
	if !ok {
		return engine.CategorySettings{}, errors.New("unknown category " + category)
	}
	return cloneSettings(settings), nil
}

func (f *FakeEngine) SetCategorySettings(category string, settings engine.CategorySettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Settings[category]; !ok {
		return errors.New("unknown category " + category)
	}
	f.Settings[category] = cloneSettings(settings)
	f.SettingsWrites[category]++
	return nil
}

func (f *FakeEngine) CreateSource(name, kind string, settings map[string]interface{}) (engine.SourceID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextHandle++
	id := engine.SourceID(f.nextHandle)
	f.Sources[id] = &FakeSource{Name: name, Kind: kind, Settings: settings}
	return id, nil
}

func (f *FakeEngine) ReleaseSource(id engine.SourceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.Sources[id]
	if !ok || src.Released {
		return errors.New("release of unknown or freed source")
	}
	src.Released = true
	return nil
}

func (f *FakeEngine) SetSourceMuted(id engine.SourceID, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.Sources[id]
	if !ok {
		return errors.New("unknown source")
	}
	src.Muted = muted
	return nil
}

func (f *FakeEngine) SetSourceTracks(id engine.SourceID, tracks uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.Sources[id]
	if !ok {
		return errors.New("unknown source")
	}
	src.Tracks = tracks
	return nil
}

func (f *FakeEngine) GetSourceDimensions(id engine.SourceID) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dims := f.SourceDims[id]
	return dims[0], dims[1], nil
}

func (f *FakeEngine) CreateScene(name string) (engine.SceneID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextHandle++
	id := engine.SceneID(f.nextHandle)
	f.Scenes[id] = true
	return id, nil
}

func (f *FakeEngine) ReleaseScene(id engine.SceneID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if live, ok := f.Scenes[id]; !ok || !live {
		return errors.New("release of unknown or freed scene")
	}
	f.Scenes[id] = false
	return nil
}

func (f *FakeEngine) AddSceneItem(scene engine.SceneID, source engine.SourceID) (engine.SceneItemID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if live, ok := f.Scenes[scene]; !ok || !live {
		return 0, errors.New("unknown scene")
	}
	f.nextHandle++
	id := engine.SceneItemID(f.nextHandle)
	f.SceneItems[id] = [2]float64{1, 1}
	return id, nil
}

func (f *FakeEngine) SetSceneItemScale(item engine.SceneItemID, x, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.SceneItems[item]; !ok {
		return errors.New("unknown scene item")
	}
	f.SceneItems[item] = [2]float64{x, y}
	return nil
}

func (f *FakeEngine) SetOutputSource(slot int, source engine.SourceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if source == 0 {
		delete(f.OutputSlot, slot)
		return nil
	}
	f.OutputSlot[slot] = source
	return nil
}

func (f *FakeEngine) SetTrackName(track int, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "" {
		delete(f.TrackNames, track)
		return nil
	}
	f.TrackNames[track] = name
	return nil
}

func (f *FakeEngine) StartRecording() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StartCalls++
	return f.StartErr
}

func (f *FakeEngine) StopRecording() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StopCalls++
	return f.StopErr
}

func (f *FakeEngine) LastRecordingPath() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LastPath, nil
}

func (f *FakeEngine) ListDisplays() ([]engine.Display, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	displays := make([]engine.Display, len(f.Displays))
	copy(displays, f.Displays)
	return displays, nil
}

func (f *FakeEngine) AttachPreview(name string, parentHandle uint64, b engine.Bounds) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Previews[name] = b
	return nil
}

func (f *FakeEngine) MovePreview(name string, b engine.Bounds) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Previews[name]; !ok {
		return errors.New("unknown preview " + name)
	}
	f.Previews[name] = b
	return nil
}

func (f *FakeEngine) DetachPreview(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Previews[name]; !ok {
		return errors.New("unknown preview " + name)
	}
	delete(f.Previews, name)
	return nil
}

func cloneSettings(settings engine.CategorySettings) engine.CategorySettings {
	out := engine.CategorySettings{
		SubCategories: make([]engine.SubCategory, len(settings.SubCategories)),
	}
	for i, sub := range settings.SubCategories {
		params := make([]engine.Parameter, len(sub.Parameters))
		copy(params, sub.Parameters)
		out.SubCategories[i] = engine.SubCategory{Name: sub.Name, Parameters: params}
	}
	return out
}

// FakeEnumerator serves canned audio device lists.
type FakeEnumerator struct {
	Inputs    []devices.Device
	Outputs   []devices.Device
	InputErr  error
	OutputErr error
}

func (f *FakeEnumerator) InputDevices() ([]devices.Device, error) {
	return f.Inputs, f.InputErr
}

func (f *FakeEnumerator) OutputDevices() ([]devices.Device, error) {
	return f.Outputs, f.OutputErr
}
