// Package clock implements a fixed rate pacer.
//
// The pacer converts elapsed wall time into a whole number of ticks. Ticks
// that could not be consumed in time accumulate up to a bounded backlog; the
// rest are dropped so a stalled host does not cause a burst afterwards.
package clock

import (
	"time"

	"github.com/hexaflex/chip8/devices"
)

// Default rates in herz.
const (
	InstructionRate = 600
	TimerRate       = 60
)

// Backlog is the maximum number of ticks a clock will catch up on.
const Backlog = 10

// Device defines a single pacer.
type Device struct {
	now      func() time.Time // Time source.
	last     time.Time        // Time accounted for by ticks returned so far.
	interval time.Duration    // Time per tick; never zero.
	serial   int
}

var _ devices.Device = &Device{}

// New creates a pacer for the given rate.
// The serial number distinguishes multiple clocks in a device map.
func New(serial, hz int) *Device {
	d := &Device{
		now:    time.Now,
		serial: serial,
	}
	d.SetRate(hz)
	d.Reset()
	return d
}

// ID returns the device identifier.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0500|d.serial&0xff)
}

// Startup restarts the clock.
func (d *Device) Startup() error {
	d.Reset()
	return nil
}

// Shutdown is a no-op.
func (d *Device) Shutdown() error {
	return nil
}

// SetTimeSource replaces the time source. Intended for tests.
func (d *Device) SetTimeSource(now func() time.Time) {
	d.now = now
	d.Reset()
}

// SetRate changes the tick rate. Rates below 1 Hz are clamped to 1 Hz and
// rates above 1 GHz to 1 GHz.
func (d *Device) SetRate(hz int) {
	if hz < 1 {
		hz = 1
	}

	d.interval = time.Second / time.Duration(hz)
	if d.interval < time.Nanosecond {
		d.interval = time.Nanosecond
	}
}

// Rate returns the tick rate in herz.
func (d *Device) Rate() int {
	return int(time.Second / d.interval)
}

// Reset discards any pending ticks.
func (d *Device) Reset() {
	d.last = d.now()
}

// Advance returns the number of ticks that elapsed since the previous call.
func (d *Device) Advance() int {
	now := d.now()
	elapsed := now.Sub(d.last)
	if elapsed < d.interval {
		return 0
	}

	n := int(elapsed / d.interval)
	if n > Backlog {
		// Keep the fractional tick, drop the rest.
		d.last = now.Add(-(elapsed % d.interval))
		return Backlog
	}

	d.last = d.last.Add(time.Duration(n) * d.interval)
	return n
}

// Until returns the time left until the next tick is due.
func (d *Device) Until() time.Duration {
	left := d.interval - d.now().Sub(d.last)
	if left < 0 {
		return 0
	}
	return left
}
