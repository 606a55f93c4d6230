// Package display implements an OpenGL render sink for the 64x32 framebuffer.
package display

import (
	"github.com/go-gl/gl/v4.2-core/gl"
	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices"
)

// Display dimensions in pixels.
const (
	Width  = 64
	Height = 32
)

// Default colors as 0xRRGGBB.
const (
	DefaultForeground = 0xe0e0e0
	DefaultBackground = 0x101010
)

// Device uploads the pixel grid to a texture and draws it as a full screen quad.
// Its methods must be called from the thread owning the GL context.
type Device struct {
	pixels      [Width * Height]byte // 0x00 or 0xff per pixel.
	palette     [2 * 4]float32       // Background and foreground as RGBA.
	shader      uint32
	vao         uint32
	vbo         uint32
	tex         uint32
	dirty       bool
	initialized bool
}

var (
	_ devices.Device  = &Device{}
	_ devices.Display = &Device{}
)

// New creates a new device with the given colors, both in 0xRRGGBB form.
func New(fg, bg uint32) *Device {
	var d Device
	rgb2f(bg, d.palette[0:4])
	rgb2f(fg, d.palette[4:8])
	return &d
}

// ID returns the device identifier.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0002)
}

// Startup initializes device resources.
func (d *Device) Startup() error {
	var err error

	d.shader, err = compileProgram(vertex, fragment)
	if err != nil {
		return errors.Wrapf(err, "failed to compile shaders")
	}

	gl.UseProgram(d.shader)

	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)

	gl.GenBuffers(1, &d.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)

	vertAttrib := uint32(gl.GetAttribLocation(d.shader, glStr("vertPos")))
	texCoordAttrib := uint32(gl.GetAttribLocation(d.shader, glStr("vertTexCoord")))

	gl.EnableVertexAttribArray(vertAttrib)
	gl.VertexAttribPointer(vertAttrib, 3, gl.FLOAT, false, 5*4, gl.PtrOffset(0))

	gl.EnableVertexAttribArray(texCoordAttrib)
	gl.VertexAttribPointer(texCoordAttrib, 2, gl.FLOAT, false, 5*4, gl.PtrOffset(3*4))

	palette := gl.GetUniformLocation(d.shader, glStr("palette"))
	gl.Uniform4fv(palette, 2, &d.palette[0])

	d.tex = makeTexture()
	d.dirty = true
	d.initialized = true
	d.Present()
	return nil
}

// Shutdown clears up device resources.
func (d *Device) Shutdown() error {
	if !d.initialized {
		return nil
	}

	d.initialized = false
	gl.DeleteTextures(1, &d.tex)
	gl.DeleteBuffers(1, &d.vbo)
	gl.DeleteVertexArrays(1, &d.vao)
	gl.DeleteProgram(d.shader)
	return nil
}

// SetPixel lights or blanks the pixel at x, y.
func (d *Device) SetPixel(x, y int, on bool) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}

	var v byte
	if on {
		v = 0xff
	}

	d.pixels[y*Width+x] = v
	d.dirty = true
}

// Clear blanks all pixels.
func (d *Device) Clear() {
	d.pixels = [Width * Height]byte{}
	d.dirty = true
}

// Present uploads the pixel grid if it changed since the last call.
func (d *Device) Present() {
	if !d.initialized || !d.dirty {
		return
	}

	uploadTexture(d.tex, Width, Height, d.pixels[:])
	d.dirty = false
}

// Draw renders the display contents.
func (d *Device) Draw() {
	if !d.initialized {
		return
	}

	gl.UseProgram(d.shader)
	gl.BindVertexArray(d.vao)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, d.tex)

	gl.DrawArrays(gl.TRIANGLES, 0, 6)
}

// rgb2f sets p to the RGBA representation of the 0xRRGGBB color in n.
func rgb2f(n uint32, p []float32) {
	p[0] = float32((n>>16)&0xff) / 255
	p[1] = float32((n>>8)&0xff) / 255
	p[2] = float32(n&0xff) / 255
	p[3] = 1
}

var quadVertices = []float32{
	//  X, Y, Z, U, V
	-1.0, -1.0, 0.0, 0.0, 1.0,
	1.0, -1.0, 0.0, 1.0, 1.0,
	-1.0, 1.0, 0.0, 0.0, 0.0,
	1.0, -1.0, 0.0, 1.0, 1.0,
	1.0, 1.0, 0.0, 1.0, 0.0,
	-1.0, 1.0, 0.0, 0.0, 0.0,
}
