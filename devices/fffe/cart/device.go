// Package cart implements a ROM cartridge holding a program image.
package cart

import (
	"bytes"
	"io"
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices"
	"github.com/hexaflex/chip8/devices/fffe/cpu"
)

// Known error conditions.
var (
	ErrNoMedia  = errors.New("no program image")
	ErrEmpty    = errors.New("program image is empty")
	ErrTooLarge = errors.New("program image is too large")
)

// Device holds a program image read from a file.
type Device struct {
	m     sync.Mutex
	file  string // Backing file for the image.
	image []byte // Current program image.
}

var _ devices.Device = &Device{}

// New creates a cartridge backed by the given file.
func New(file string) *Device {
	return &Device{file: file}
}

// ID returns the device identifier.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0004)
}

// Startup reads the image from the backing file.
func (d *Device) Startup() error {
	return d.Reload()
}

// Shutdown discards the image.
func (d *Device) Shutdown() error {
	d.m.Lock()
	d.image = nil
	d.m.Unlock()
	return nil
}

// File returns the path of the backing file.
func (d *Device) File() string {
	return d.file
}

// Reload reads the image from the backing file again.
// The current image is kept if the file can not be read.
func (d *Device) Reload() error {
	if len(d.file) == 0 {
		return ErrNoMedia
	}

	log.Println(d.ID(), "reading", d.file)
	fd, err := os.Open(d.file)
	if err != nil {
		return err
	}

	defer fd.Close()

	image, err := Read(fd)
	if err != nil {
		return errors.Wrapf(err, "%s", d.file)
	}

	d.m.Lock()
	d.image = image
	d.m.Unlock()
	return nil
}

// Image returns a copy of the current program image.
func (d *Device) Image() []byte {
	d.m.Lock()
	defer d.m.Unlock()
	return append([]byte(nil), d.image...)
}

// Read reads a complete program image from r.
// Empty images and images that do not fit between 0x200 and the end of
// memory are rejected.
func Read(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer

	// One byte past the limit is enough to detect an oversized image.
	n, err := io.Copy(&buf, io.LimitReader(r, cpu.MaxImageSize+1))
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, ErrEmpty
	}

	if n > cpu.MaxImageSize {
		return nil, errors.Wrapf(ErrTooLarge, "limit is %d bytes", cpu.MaxImageSize)
	}

	return buf.Bytes(), nil
}
