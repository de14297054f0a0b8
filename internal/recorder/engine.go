package recorder

import (
	"github.com/tdaugaard/wow-recorder/internal/engine"
)

// Engine is the boundary to the native capture/encode engine host. The
// production implementation is engine.Client; tests substitute a fake.
//
// Scene handles share the host's source handle namespace, so a scene can be
// bound to an output slot by converting its id.
type Engine interface {
	Connect() error
	Disconnect() error
	Init(locale, dataDir, version string) (int, error)
	OnOutputSignal(handler func(engine.Signal))
	OnDisconnected(handler func())

	GetCategorySettings(category string) (engine.CategorySettings, error)
	SetCategorySettings(category string, settings engine.CategorySettings) error

	CreateSource(name, kind string, settings map[string]interface{}) (engine.SourceID, error)
	ReleaseSource(id engine.SourceID) error
	SetSourceMuted(id engine.SourceID, muted bool) error
	SetSourceTracks(id engine.SourceID, tracks uint64) error
	GetSourceDimensions(id engine.SourceID) (int, int, error)

	CreateScene(name string) (engine.SceneID, error)
	ReleaseScene(id engine.SceneID) error
	AddSceneItem(scene engine.SceneID, source engine.SourceID) (engine.SceneItemID, error)
	SetSceneItemScale(item engine.SceneItemID, x, y float64) error

	SetOutputSource(slot int, source engine.SourceID) error
	SetTrackName(track int, name string) error

	StartRecording() error
	StopRecording() error
	LastRecordingPath() (string, error)

	ListDisplays() ([]engine.Display, error)

	AttachPreview(name string, parentHandle uint64, b engine.Bounds) error
	MovePreview(name string, b engine.Bounds) error
	DetachPreview(name string) error
}

var _ Engine = (*engine.Client)(nil)
