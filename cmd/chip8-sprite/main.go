package main

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// Sprites are 8 pixels wide, one byte per row. DRW draws at most 15 rows.
const (
	SpriteWidth     = 8
	MaxSpriteHeight = 15
)

func main() {
	config := parseArgs()
	img := loadImage(config)

	out, close := makeWriter(config)
	defer close()

	sprites := Slice(img, config.Height)

	var err error
	if config.Raw {
		_, err = out.Write(Raw(sprites))
	} else {
		err = WriteListing(out, sprites, config.Height)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Slice cuts the image into sprites of the given height, left to right and
// top to bottom. Pixels with a non-zero red channel are lit. Partial tiles
// at the right and bottom edge are skipped.
func Slice(img image.Image, height int) [][]byte {
	r := img.Bounds()
	w := r.Dx() / SpriteWidth
	h := r.Dy() / height

	sprites := make([][]byte, 0, w*h)

	for y := 0; y < h; y++ {
		sy := r.Min.Y + y*height

		for x := 0; x < w; x++ {
			sx := r.Min.X + x*SpriteWidth
			sprite := make([]byte, height)

			for py := 0; py < height; py++ {
				for px := 0; px < SpriteWidth; px++ {
					if red, _, _, _ := img.At(sx+px, sy+py).RGBA(); red != 0 {
						sprite[py] |= 0x80 >> uint(px)
					}
				}
			}

			sprites = append(sprites, sprite)
		}
	}

	return sprites
}

// Raw concatenates the sprites, ready to be appended to a program image.
func Raw(sprites [][]byte) []byte {
	var out []byte
	for _, s := range sprites {
		out = append(out, s...)
	}
	return out
}

// WriteListing writes the sprites as a commented hex listing.
func WriteListing(w io.Writer, sprites [][]byte, height int) error {
	if _, err := fmt.Fprintf(w, "; %d sprites, %d bytes each\n", len(sprites), height); err != nil {
		return err
	}

	for i, sprite := range sprites {
		if _, err := fmt.Fprintf(w, "\n; sprite %d at +%03x\n", i, i*height); err != nil {
			return err
		}

		for _, row := range sprite {
			if _, err := fmt.Fprintf(w, "%02x  ; %08b\n", row, row); err != nil {
				return err
			}
		}
	}

	return nil
}

// loadImage loads an image from the input file.
func loadImage(c *Config) image.Image {
	fd, err := os.Open(c.Input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	defer fd.Close()

	img, _, err := image.Decode(fd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	r := img.Bounds()
	if r.Dx() < SpriteWidth || r.Dy() < c.Height {
		fmt.Fprintf(os.Stderr, "source image is too small; expected at least %d x %d pixels\n", SpriteWidth, c.Height)
		os.Exit(1)
	}

	return img
}

// makeWriter creates an output writer and a cleanup function for it.
func makeWriter(c *Config) (io.Writer, func()) {
	if c.Output == "" {
		return os.Stdout, func() {}
	}

	dir, _ := filepath.Split(c.Output)
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	fd, err := os.Create(c.Output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return fd, func() { fd.Close() }
}
