package cpu

import (
	"fmt"

	"github.com/hexaflex/chip8/arch"
)

// Instruction defines decoded instruction data.
type Instruction struct {
	IP   int    // Instruction address.
	Word uint16 // Raw instruction word.
	Op   int    // Instruction identifier; one of the arch constants.
	C    int    // Top nibble: instruction family.
	X    int    // Second nibble: usually a register index.
	Y    int    // Third nibble: usually a register index.
	N    int    // Fourth nibble: usually a small count.
	NN   int    // Low byte.
	NNN  int    // Low 12 bits: usually an address.
}

// Decode splits the big-endian instruction word formed by a and b into its fields.
// Every input yields a valid decomposition; words that do not encode a known
// instruction get Op == arch.Unknown.
func Decode(a, b byte) Instruction {
	word := uint16(a)<<8 | uint16(b)
	return Instruction{
		Word: word,
		Op:   arch.Classify(word),
		C:    int(a >> 4),
		X:    int(a & 0xf),
		Y:    int(b >> 4),
		N:    int(b & 0xf),
		NN:   int(b),
		NNN:  int(word & 0xfff),
	}
}

func (i *Instruction) String() string {
	name, ok := arch.Name(i.Op)
	if !ok {
		return fmt.Sprintf("%04x %04x  ???", i.IP, i.Word)
	}
	args := arch.Operands(i.Op, i.X, i.Y, i.N, i.NN, i.NNN)
	return fmt.Sprintf("%04x %04x  %-4s %s", i.IP, i.Word, name, args)
}
