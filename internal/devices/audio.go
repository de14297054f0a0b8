// Package devices enumerates audio capture and playback devices through the
// system audio backend (miniaudio via malgo).
package devices

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/gen2brain/malgo"
)

// Direction distinguishes input (capture) from output (playback) devices.
type Direction int

const (
	Input Direction = iota
	Output
)

// String returns "input" or "output".
func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Device is one enumerated audio endpoint.
type Device struct {
	ID        string
	Name      string
	Direction Direction
	IsDefault bool
}

// Enumerator lists available audio devices. Implementations must be
// side-effect free; enumeration order is stable within one process run and
// determines track slot assignment downstream.
type Enumerator interface {
	InputDevices() ([]Device, error)
	OutputDevices() ([]Device, error)
}

// MalgoEnumerator enumerates devices through a malgo context. The context is
// created lazily on first use and kept for the lifetime of the enumerator.
type MalgoEnumerator struct {
	ctx *malgo.AllocatedContext
}

// NewMalgoEnumerator creates an enumerator backed by the system audio backend.
func NewMalgoEnumerator() (*MalgoEnumerator, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio backend: %w", err)
	}
	return &MalgoEnumerator{ctx: ctx}, nil
}

// Close releases the underlying audio backend context.
func (e *MalgoEnumerator) Close() {
	if e.ctx != nil {
		_ = e.ctx.Uninit()
		e.ctx.Free()
		e.ctx = nil
	}
}

// InputDevices returns available capture devices in backend order.
func (e *MalgoEnumerator) InputDevices() ([]Device, error) {
	return e.enumerate(malgo.Capture, Input)
}

// OutputDevices returns available playback devices in backend order.
func (e *MalgoEnumerator) OutputDevices() ([]Device, error) {
	return e.enumerate(malgo.Playback, Output)
}

func (e *MalgoEnumerator) enumerate(kind malgo.DeviceType, dir Direction) ([]Device, error) {
	infos, err := e.ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s devices: %w", dir, err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			ID:        deviceID(info.ID),
			Name:      info.Name(),
			Direction: dir,
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// deviceID renders a backend device id as a stable hex string.
func deviceID(id malgo.DeviceID) string {
	trimmed := bytes.TrimRight(id[:], "\x00")
	if len(trimmed) == 0 {
		return "default"
	}
	return hex.EncodeToString(trimmed)
}
