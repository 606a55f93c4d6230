package cpu

import (
	"strings"

	"github.com/hexaflex/chip8/devices"
)

// Display dimensions in pixels.
const (
	DisplayWidth  = 64
	DisplayHeight = 32
)

// Framebuffer holds the monochrome display contents.
// It can only be changed by the CLS and DRW instructions.
type Framebuffer struct {
	bits [DisplayWidth * DisplayHeight]bool
	sink devices.Display
}

// Pixel returns true if the pixel at x, y is lit.
// Coordinates outside the grid yield false.
func (f *Framebuffer) Pixel(x, y int) bool {
	if x < 0 || x >= DisplayWidth || y < 0 || y >= DisplayHeight {
		return false
	}
	return f.bits[y*DisplayWidth+x]
}

// Bits returns a copy of the pixel grid in row-major order.
func (f *Framebuffer) Bits() []bool {
	out := make([]bool, len(f.bits))
	copy(out, f.bits[:])
	return out
}

// String returns the grid as lines of '#' and '.' characters.
func (f *Framebuffer) String() string {
	var sb strings.Builder
	sb.Grow((DisplayWidth + 1) * DisplayHeight)

	for y := 0; y < DisplayHeight; y++ {
		for x := 0; x < DisplayWidth; x++ {
			if f.bits[y*DisplayWidth+x] {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// clear blanks all pixels and notifies the sink.
func (f *Framebuffer) clear() {
	f.bits = [DisplayWidth * DisplayHeight]bool{}
	f.sink.Clear()
	f.sink.Present()
}

// draw XORs the sprite rows onto the grid with the top left corner at x0, y0.
// The origin must already be inside the grid. Pixels falling off the right or
// bottom edge are clipped. Returns true if any lit pixel was turned off.
func (f *Framebuffer) draw(x0, y0 int, sprite []byte) bool {
	var collision bool

	for row, bits := range sprite {
		y := y0 + row
		if y >= DisplayHeight {
			break
		}

		for col := 0; col < 8; col++ {
			x := x0 + col
			if x >= DisplayWidth {
				break
			}

			if bits&(0x80>>uint(col)) == 0 {
				continue
			}

			index := y*DisplayWidth + x
			if f.bits[index] {
				collision = true
			}

			f.bits[index] = !f.bits[index]
			f.sink.SetPixel(x, y, f.bits[index])
		}
	}

	f.sink.Present()
	return collision
}
