package cpu

import (
	"fmt"

	"github.com/pkg/errors"
)

// Conditions that abort a program. They are returned wrapped in *Error;
// use errors.Cause to compare against them.
var (
	ErrStackUnderflow = errors.New("return with empty call stack")
	ErrStackOverflow  = errors.New("call stack overflow")
	ErrAddress        = errors.New("address out of range")
)

// Error defines a runtime error.
type Error struct {
	IP   int    // Address of the failing instruction.
	Word uint16 // The failing instruction word.
	Err  error
}

// NewError creates a new runtime error for the given instruction.
func NewError(instr *Instruction, err error) *Error {
	return &Error{
		IP:   instr.IP,
		Word: instr.Word,
		Err:  err,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%04x: %04x: %v", e.IP, e.Word, e.Err)
}

// Cause returns the underlying error.
func (e *Error) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }
