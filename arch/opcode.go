// Package arch defines the CHIP-8 instruction set along with
// some related helper functions.
package arch

// Known instructions. The comment lists the encoding for each.
const (
	Unknown = iota

	SYS  // 0NNN
	CLS  // 00E0
	RET  // 00EE
	JP   // 1NNN
	CALL // 2NNN
	SEB  // 3XNN
	SNEB // 4XNN
	SER  // 5XY0
	LDB  // 6XNN
	ADDB // 7XNN

	LDR  // 8XY0
	OR   // 8XY1
	AND  // 8XY2
	XOR  // 8XY3
	ADDR // 8XY4
	SUB  // 8XY5
	SHR  // 8XY6
	SUBN // 8XY7
	SHL  // 8XYE

	SNER // 9XY0
	LDI  // ANNN
	JPV0 // BNNN
	RND  // CXNN
	DRW  // DXYN
	SKP  // EX9E
	SKNP // EXA1

	LDVDT // FX07
	LDK   // FX0A
	LDDT  // FX15
	LDST  // FX18
	ADDI  // FX1E
	LDF   // FX29
	BCD   // FX33
	STM   // FX55
	LDM   // FX65
)

// Classify returns the instruction identifier for the given instruction word.
// Returns Unknown if the word does not encode a known instruction.
func Classify(word uint16) int {
	n := word & 0xf
	nn := word & 0xff

	switch word >> 12 {
	case 0x0:
		switch word {
		case 0x00e0:
			return CLS
		case 0x00ee:
			return RET
		}
		return SYS
	case 0x1:
		return JP
	case 0x2:
		return CALL
	case 0x3:
		return SEB
	case 0x4:
		return SNEB
	case 0x5:
		if n == 0 {
			return SER
		}
	case 0x6:
		return LDB
	case 0x7:
		return ADDB
	case 0x8:
		switch n {
		case 0x0:
			return LDR
		case 0x1:
			return OR
		case 0x2:
			return AND
		case 0x3:
			return XOR
		case 0x4:
			return ADDR
		case 0x5:
			return SUB
		case 0x6:
			return SHR
		case 0x7:
			return SUBN
		case 0xe:
			return SHL
		}
	case 0x9:
		if n == 0 {
			return SNER
		}
	case 0xa:
		return LDI
	case 0xb:
		return JPV0
	case 0xc:
		return RND
	case 0xd:
		return DRW
	case 0xe:
		switch nn {
		case 0x9e:
			return SKP
		case 0xa1:
			return SKNP
		}
	case 0xf:
		switch nn {
		case 0x07:
			return LDVDT
		case 0x0a:
			return LDK
		case 0x15:
			return LDDT
		case 0x18:
			return LDST
		case 0x1e:
			return ADDI
		case 0x29:
			return LDF
		case 0x33:
			return BCD
		case 0x55:
			return STM
		case 0x65:
			return LDM
		}
	}

	return Unknown
}

// Name returns the mnemonic for the given instruction.
// Returns false if the instruction is not recognized.
func Name(op int) (string, bool) {
	switch op {
	case SYS:
		return "SYS", true
	case CLS:
		return "CLS", true
	case RET:
		return "RET", true
	case JP, JPV0:
		return "JP", true
	case CALL:
		return "CALL", true
	case SEB, SER:
		return "SE", true
	case SNEB, SNER:
		return "SNE", true
	case LDB, LDR, LDI, LDVDT, LDK, LDDT, LDST, LDF, BCD, STM, LDM:
		return "LD", true
	case ADDB, ADDR, ADDI:
		return "ADD", true
	case OR:
		return "OR", true
	case AND:
		return "AND", true
	case XOR:
		return "XOR", true
	case SUB:
		return "SUB", true
	case SHR:
		return "SHR", true
	case SUBN:
		return "SUBN", true
	case SHL:
		return "SHL", true
	case RND:
		return "RND", true
	case DRW:
		return "DRW", true
	case SKP:
		return "SKP", true
	case SKNP:
		return "SKNP", true
	}

	return "", false
}
