package cpu

// Memory layout.
const (
	MemoryCapacity = 0x1000                        // Total addressable memory.
	ProgramStart   = 0x200                         // Load address and initial PC.
	MaxImageSize   = MemoryCapacity - ProgramStart // Largest program image that fits.
	FontStart      = 0x000                         // Address of the first font glyph.
	GlyphSize      = 5                             // Bytes per font glyph.
)

// Memory defines the system's memory bank.
type Memory []byte

// Write writes len(p) bytes from p into memory, starting at the given address.
func (m Memory) Write(address int, p []byte) {
	copy(m[address:], p)
}

// Read reads len(p) bytes from memory into p, starting at the given address.
func (m Memory) Read(address int, p []byte) {
	copy(p, m[address:])
}

// Contains returns true if the n bytes starting at addr are all addressable.
func (m Memory) Contains(addr, n int) bool {
	return addr >= 0 && n >= 0 && addr+n <= len(m)
}

// font holds the built-in hexadecimal digit glyphs, 4x5 pixels each.
var font = [16 * GlyphSize]byte{
	0xf0, 0x90, 0x90, 0x90, 0xf0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xf0, 0x10, 0xf0, 0x80, 0xf0, // 2
	0xf0, 0x10, 0xf0, 0x10, 0xf0, // 3
	0x90, 0x90, 0xf0, 0x10, 0x10, // 4
	0xf0, 0x80, 0xf0, 0x10, 0xf0, // 5
	0xf0, 0x80, 0xf0, 0x90, 0xf0, // 6
	0xf0, 0x10, 0x20, 0x40, 0x40, // 7
	0xf0, 0x90, 0xf0, 0x90, 0xf0, // 8
	0xf0, 0x90, 0xf0, 0x10, 0xf0, // 9
	0xf0, 0x90, 0xf0, 0x90, 0x90, // A
	0xe0, 0x90, 0xe0, 0x90, 0xe0, // B
	0xf0, 0x80, 0x80, 0x80, 0xf0, // C
	0xe0, 0x90, 0x90, 0x90, 0xe0, // D
	0xf0, 0x80, 0xf0, 0x80, 0xf0, // E
	0xf0, 0x80, 0xf0, 0x80, 0x80, // F
}
