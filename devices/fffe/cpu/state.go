package cpu

// Memory returns the cpu's internal memory bank.
func (c *CPU) Memory() Memory {
	return c.memory
}

// Framebuffer returns the display contents.
func (c *CPU) Framebuffer() *Framebuffer {
	return &c.fb
}

// V returns the value of register Vn.
func (c *CPU) V(n int) byte {
	return c.v[n&0xf]
}

// PC returns the program counter.
func (c *CPU) PC() int {
	return int(c.pc)
}

// I returns the index register.
func (c *CPU) I() int {
	return int(c.i)
}

// Stack returns a copy of the call stack, oldest return address first.
func (c *CPU) Stack() []uint16 {
	out := make([]uint16, len(c.stack))
	copy(out, c.stack)
	return out
}

// Delay returns the delay timer.
func (c *CPU) Delay() byte {
	return c.delay
}

// Sound returns the sound timer. The tone should play while it is non-zero.
func (c *CPU) Sound() byte {
	return c.sound
}

// Key returns true if the given key is currently down.
func (c *CPU) Key(key int) bool {
	if key < 0 || key >= KeyCount {
		return false
	}
	return c.keys[key]
}

// Mode returns the current execution mode.
func (c *CPU) Mode() Mode {
	return c.mode
}
