// Package beeper implements a tone sink playing a square wave through SDL.
package beeper

import (
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/hexaflex/chip8/devices"
)

// Number of samples per SDL buffer and the amount of audio kept
// queued while the tone is enabled.
const (
	bufferLength = 512
	queueLength  = bufferLength * 4
)

// Device keeps the SDL audio queue filled while the tone is enabled.
type Device struct {
	id      sdl.AudioDeviceID
	wave    *devices.SquareWave
	buffer  []byte
	enabled bool
	open    bool
}

var (
	_ devices.Device = &Device{}
	_ devices.Tone   = &Device{}
)

// New creates a new device playing the given pitch at the given volume.
func New(freq int, volume float64) *Device {
	return &Device{
		wave:   devices.NewSquareWave(freq, devices.SampleRate, volume),
		buffer: make([]byte, bufferLength),
	}
}

// ID returns the device identifier.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0006)
}

// Startup opens the default audio output.
func (d *Device) Startup() error {
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return errors.Wrapf(err, "sdl audio init")
	}

	spec := &sdl.AudioSpec{
		Freq:     devices.SampleRate,
		Format:   sdl.AUDIO_S8,
		Channels: 1,
		Samples:  bufferLength,
	}

	var err error
	var actual sdl.AudioSpec

	d.id, err = sdl.OpenAudioDevice("", false, spec, &actual, 0)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_AUDIO)
		return errors.Wrapf(err, "open audio device")
	}

	d.open = true
	d.enabled = false
	return nil
}

// Shutdown closes the audio output.
func (d *Device) Shutdown() error {
	if !d.open {
		return nil
	}

	d.open = false
	d.enabled = false
	sdl.CloseAudioDevice(d.id)
	sdl.QuitSubSystem(sdl.INIT_AUDIO)
	return nil
}

// Enable tops up the audio queue and starts playback.
// It is meant to be called repeatedly while the tone should sound.
func (d *Device) Enable() {
	if !d.open {
		return
	}

	for sdl.GetQueuedAudioSize(d.id) < queueLength {
		d.fill(d.buffer)
		if err := sdl.QueueAudio(d.id, d.buffer); err != nil {
			break
		}
	}

	if !d.enabled {
		sdl.PauseAudioDevice(d.id, false)
		d.enabled = true
	}
}

// Disable stops playback and drops queued samples.
func (d *Device) Disable() {
	if !d.open || !d.enabled {
		return
	}

	sdl.PauseAudioDevice(d.id, true)
	sdl.ClearQueuedAudio(d.id)
	d.enabled = false
}

// fill writes signed 8-bit samples into p.
func (d *Device) fill(p []byte) {
	for i := range p {
		p[i] = byte(int8(d.wave.Next() * 127))
	}
}
