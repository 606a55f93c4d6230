package arch

import "fmt"

// Register file layout.
const (
	RegisterCount = 16  // Number of general purpose registers V0..VF.
	VF            = 0xf // Flag register written by arithmetic and draw instructions.
)

// RegisterName returns the name associated with the given register index.
// Returns "" if the index is not recognized.
func RegisterName(n int) string {
	if n < 0 || n >= RegisterCount {
		return ""
	}
	return fmt.Sprintf("V%X", n)
}

// Operands returns the assembly style operand list for an instruction
// with the given identifier and nibble fields.
func Operands(op, x, y, n, nn, nnn int) string {
	vx := RegisterName(x)
	vy := RegisterName(y)

	switch op {
	case SYS, JP, CALL:
		return fmt.Sprintf("#%03x", nnn)
	case JPV0:
		return fmt.Sprintf("V0, #%03x", nnn)
	case SEB, SNEB, LDB, ADDB, RND:
		return fmt.Sprintf("%s, #%02x", vx, nn)
	case SER, SNER, LDR, OR, AND, XOR, ADDR, SUB, SUBN:
		return vx + ", " + vy
	case SHR, SHL, SKP, SKNP:
		return vx
	case LDI:
		return fmt.Sprintf("I, #%03x", nnn)
	case DRW:
		return fmt.Sprintf("%s, %s, %d", vx, vy, n)
	case LDVDT:
		return vx + ", DT"
	case LDK:
		return vx + ", K"
	case LDDT:
		return "DT, " + vx
	case LDST:
		return "ST, " + vx
	case ADDI:
		return "I, " + vx
	case LDF:
		return "F, " + vx
	case BCD:
		return "B, " + vx
	case STM:
		return "[I], VF"
	case LDM:
		return "VF, [I]"
	}
	return ""
}
