// Package tty implements a terminal front-end: a render sink drawing the
// framebuffer with ANSI escapes and an input adapter for typed characters.
package tty

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/term"
	"golang.org/x/sys/unix"

	"github.com/hexaflex/chip8/devices"
)

// Device ties a Screen and an Input to the controlling terminal.
type Device struct {
	*Screen
	input  *Input
	out    *os.File
	tty    *term.Term
	bytes  chan byte
	done   chan struct{}
	closed bool
}

var (
	_ devices.Device  = &Device{}
	_ devices.Display = &Device{}
)

// New creates a device drawing to out and reporting keys to f.
func New(out *os.File, f devices.KeyFunc, hold time.Duration) *Device {
	return &Device{
		Screen: NewScreen(out),
		input:  NewInput(f, hold),
		out:    out,
	}
}

// ID returns the device identifier.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0008)
}

// Startup puts the terminal in raw mode and starts reading keys.
func (d *Device) Startup() error {
	cols, rows, err := Size(d.out)
	if err != nil {
		return errors.Wrapf(err, "terminal size")
	}

	if cols < Width || rows < Rows {
		return errors.Errorf("terminal too small; need %dx%d, have %dx%d", Width, Rows, cols, rows)
	}

	d.tty, err = term.Open("/dev/tty", term.RawMode, term.ReadTimeout(100*time.Millisecond))
	if err != nil {
		return errors.Wrapf(err, "open terminal")
	}

	d.bytes = make(chan byte, 64)
	d.done = make(chan struct{})
	d.closed = false
	go d.read()

	io.WriteString(d.out, hideCursor+clearScreen)
	d.dirty = true
	d.Draw()
	return nil
}

// Shutdown restores the terminal.
func (d *Device) Shutdown() error {
	if d.tty == nil {
		return nil
	}

	close(d.done)
	for range d.bytes {
		// Wait for the reader to exit.
	}
	d.closed = true
	d.input.ReleaseAll()

	io.WriteString(d.out, resetAttrs+showCursor+"\r\n")

	var errorset devices.ErrorSet
	errorset.Append(d.tty.Restore())
	errorset.Append(d.tty.Close())
	d.tty = nil

	if errorset.Len() == 0 {
		return nil
	}
	return errorset
}

// Poll hands typed characters to the input and expires held keys.
// Returns false if the user asked to quit.
func (d *Device) Poll(now time.Time) bool {
	if d.closed {
		return false
	}

	for {
		select {
		case b, ok := <-d.bytes:
			if !ok {
				d.closed = true
				return false
			}
			if !d.input.Feed(b, now) {
				return false
			}
		default:
			d.input.Expire(now)
			return true
		}
	}
}

// read forwards bytes from the terminal until Shutdown is called.
func (d *Device) read() {
	defer close(d.bytes)

	tty := d.tty
	buf := make([]byte, 16)

	for {
		select {
		case <-d.done:
			return
		default:
		}

		n, err := tty.Read(buf)
		if err != nil && err != io.EOF {
			log.Println(d.ID(), err)
			return
		}

		for _, b := range buf[:n] {
			select {
			case d.bytes <- b:
			case <-d.done:
				return
			}
		}
	}
}

// Size returns the dimensions of the terminal in characters.
func Size(f *os.File) (cols, rows int, err error) {
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}
