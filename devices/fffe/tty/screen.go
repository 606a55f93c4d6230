package tty

import (
	"bytes"
	"io"
)

// Display dimensions in pixels. Two pixel rows share one text row.
const (
	Width  = 64
	Height = 32
	Rows   = Height / 2
)

// ANSI control sequences.
const (
	cursorHome  = "\x1b[H"
	clearScreen = "\x1b[2J"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
	resetAttrs  = "\x1b[0m"
)

// Screen renders the pixel grid with half block characters.
type Screen struct {
	w      io.Writer
	pixels [Width * Height]bool
	buf    bytes.Buffer
	dirty  bool
}

// NewScreen creates a screen writing frames to w.
func NewScreen(w io.Writer) *Screen {
	return &Screen{w: w, dirty: true}
}

// SetPixel lights or blanks the pixel at x, y.
func (s *Screen) SetPixel(x, y int, on bool) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	s.pixels[y*Width+x] = on
	s.dirty = true
}

// Clear blanks all pixels.
func (s *Screen) Clear() {
	s.pixels = [Width * Height]bool{}
	s.dirty = true
}

// Present does nothing. Frames are written by Draw at the refresh rate.
func (s *Screen) Present() {}

// Draw writes a frame if anything changed since the last one.
func (s *Screen) Draw() {
	if !s.dirty {
		return
	}

	s.dirty = false
	s.w.Write(s.Frame())
}

// Frame returns the current frame, starting at the top left of the terminal.
func (s *Screen) Frame() []byte {
	s.buf.Reset()
	s.buf.WriteString(cursorHome)

	for row := 0; row < Rows; row++ {
		top := s.pixels[row*2*Width:]
		bottom := s.pixels[(row*2+1)*Width:]

		for x := 0; x < Width; x++ {
			s.buf.WriteString(halfBlock(top[x], bottom[x]))
		}

		s.buf.WriteString("\r\n")
	}

	return s.buf.Bytes()
}

func halfBlock(top, bottom bool) string {
	switch {
	case top && bottom:
		return "█"
	case top:
		return "▀"
	case bottom:
		return "▄"
	}
	return " "
}
