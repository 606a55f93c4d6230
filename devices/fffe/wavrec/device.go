// Package wavrec implements a tone sink which records the tone to a WAV file.
//
// The Enable/Disable gate is sampled against wall time. Every call renders the
// time elapsed since the previous one as tone or silence, depending on the
// state the gate was in. Rendered samples are streamed to the output file;
// the WAV header is finalized when the device shuts down.
package wavrec

import (
	"log"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices"
)

// Output format.
const (
	BitDepth    = 16
	NumChannels = 1
	amplitude   = 1<<(BitDepth-1) - 1
	pcmFormat   = 1
	chunkSize   = devices.SampleRate / 10 // Samples per encoder write.
)

// Device records the tone gate.
type Device struct {
	file    string           // Output file.
	now     func() time.Time // Time source.
	start   time.Time        // Recording start.
	wave    *devices.SquareWave
	fd      *os.File
	enc     *wav.Encoder
	buf     audio.IntBuffer
	count   int64 // Samples written so far.
	err     error // First write error; reported by Shutdown.
	enabled bool
	running bool
}

var (
	_ devices.Device = &Device{}
	_ devices.Tone   = &Device{}
)

// New creates a recorder writing to the given file.
func New(file string, freq int, volume float64) *Device {
	return &Device{
		file: file,
		now:  time.Now,
		wave: devices.NewSquareWave(freq, devices.SampleRate, volume),
		buf: audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: NumChannels,
				SampleRate:  devices.SampleRate,
			},
			Data:           make([]int, chunkSize),
			SourceBitDepth: BitDepth,
		},
	}
}

// ID returns the device identifier.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0007)
}

// SetTimeSource replaces the time source. Intended for tests.
func (d *Device) SetTimeSource(now func() time.Time) {
	d.now = now
}

// Startup creates the output file and starts a new recording.
func (d *Device) Startup() error {
	if d.running {
		return nil
	}

	log.Println(d.ID(), "recording to", d.file)
	fd, err := os.Create(d.file)
	if err != nil {
		return err
	}

	d.fd = fd
	d.enc = wav.NewEncoder(fd, devices.SampleRate, BitDepth, NumChannels, pcmFormat)
	d.start = d.now()
	d.count = 0
	d.err = nil
	d.enabled = false
	d.running = true
	return nil
}

// Shutdown ends the recording and finalizes the output file.
func (d *Device) Shutdown() error {
	if !d.running {
		return nil
	}

	d.render()
	d.running = false

	err := d.err
	if cerr := d.enc.Close(); err == nil {
		err = cerr
	}

	if cerr := d.fd.Close(); err == nil {
		err = cerr
	}

	d.enc = nil
	d.fd = nil

	if err != nil {
		return errors.Wrapf(err, "%s", d.file)
	}
	return nil
}

// Enable starts the tone.
func (d *Device) Enable() {
	d.set(true)
}

// Disable silences the tone.
func (d *Device) Disable() {
	d.set(false)
}

func (d *Device) set(enabled bool) {
	if !d.running {
		return
	}

	d.render()
	d.enabled = enabled
}

// render writes samples up to the current time.
func (d *Device) render() {
	n := samplesAt(d.now().Sub(d.start)) - d.count

	for n > 0 && d.err == nil {
		data := d.buf.Data[:cap(d.buf.Data)]
		if int64(len(data)) > n {
			data = data[:n]
		}

		if d.enabled {
			d.wave.Fill(data, amplitude)
		} else {
			for i := range data {
				data[i] = 0
			}
		}

		d.buf.Data = data
		if err := d.enc.Write(&d.buf); err != nil {
			d.err = err
			return
		}

		d.count += int64(len(data))
		n -= int64(len(data))
	}
}

// samplesAt returns the number of samples covering the given duration.
func samplesAt(el time.Duration) int64 {
	if el <= 0 {
		return 0
	}

	sec := int64(el / time.Second)
	frac := int64(el % time.Second)
	return sec*devices.SampleRate + frac*devices.SampleRate/int64(time.Second)
}
