// Package cpu implements the CHIP-8 interpreter.
package cpu

import (
	"io"
	"log"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/arch"
	"github.com/hexaflex/chip8/devices"
)

// StackDepth is the maximum number of nested subroutine calls.
const StackDepth = 16

// KeyCount is the number of keys on the hex keypad.
const KeyCount = 16

// TraceFunc represents a callback handler for debug trace output.
type TraceFunc func(*Instruction)

// Mode describes what the CPU does on its next Step.
type Mode int

// Known modes.
const (
	Running     Mode = iota // Fetch and execute the next instruction.
	AwaitingKey             // Re-execute the held LD Vx, K until a key is down.
)

func (m Mode) String() string {
	switch m {
	case Running:
		return "running"
	case AwaitingKey:
		return "awaiting key"
	}
	return "unknown"
}

// CPU implements the runtime.
type CPU struct {
	devices     devices.Map
	trace       TraceFunc   // Handler for debug trace output.
	logger      *log.Logger // Receives reports about ignored instructions.
	memory      Memory      // System memory.
	fb          Framebuffer // Display contents.
	rng         *rand.Rand  // Random number generator.
	stack       []uint16    // Return addresses.
	v           [arch.RegisterCount]byte
	keys        [KeyCount]bool
	pc          uint16
	i           uint16
	delay       byte
	sound       byte
	mode        Mode
	held        Instruction // Instruction re-executed while awaiting a key.
	initialized uint32      // Has Startup been called?
}

// New creates a new CPU which sends framebuffer updates to the given display.
// Optionally with the given debug trace handler. Either may be nil.
func New(display devices.Display, trace TraceFunc) *CPU {
	if display == nil {
		display = devices.NopDisplay{}
	}

	if trace == nil {
		trace = func(*Instruction) { /* nop */ }
	}

	c := &CPU{
		trace:  trace,
		logger: log.New(os.Stderr, "", log.LstdFlags),
		memory: make(Memory, MemoryCapacity),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		stack:  make([]uint16, 0, StackDepth),
	}

	c.fb.sink = display
	c.reset()
	return c
}

// ID returns the cpu's device ID.
func (c *CPU) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0001)
}

// SetLogger sets the logger receiving reports about ignored instructions.
func (c *CPU) SetLogger(l *log.Logger) {
	c.logger = l
}

// Seed reseeds the random number generator used by RND.
func (c *CPU) Seed(v int64) {
	c.rng = rand.New(rand.NewSource(v))
}

// Connect connects the given hardware peripheral to the system.
// Returns false if the given device type is already connected.
func (c *CPU) Connect(dev devices.Device) bool {
	return c.devices.Connect(dev)
}

// Startup resets the machine and initializes connected peripherals.
// Returns an error if the cpu is already running. Use Shutdown() first.
func (c *CPU) Startup() error {
	if !atomic.CompareAndSwapUint32(&c.initialized, 0, 1) {
		return errors.Errorf("%s already started", c.ID())
	}

	log.Println(c.ID(), "startup")
	c.reset()
	c.fb.clear()

	return c.devices.Startup()
}

// Shutdown cleans up internal resources.
func (c *CPU) Shutdown() error {
	if !atomic.CompareAndSwapUint32(&c.initialized, 1, 0) {
		return nil
	}
	log.Println(c.ID(), "shutdown")
	return c.devices.Shutdown()
}

// reset returns all machine state to its power-on values.
func (c *CPU) reset() {
	for i := range c.memory {
		c.memory[i] = 0
	}
	c.memory.Write(FontStart, font[:])

	c.fb.bits = [DisplayWidth * DisplayHeight]bool{}
	c.v = [arch.RegisterCount]byte{}
	c.keys = [KeyCount]bool{}
	c.stack = c.stack[:0]
	c.pc = ProgramStart
	c.i = ProgramStart
	c.delay = 0
	c.sound = 0
	c.mode = Running
}

// Load copies the program image into memory at ProgramStart and points
// PC and I at it. Bytes that do not fit are dropped.
func (c *CPU) Load(image []byte) {
	c.memory.Write(ProgramStart, image)
	c.pc = ProgramStart
	c.i = ProgramStart
	c.mode = Running
}

// Step performs a single execution step.
// Returns io.EOF if no program is loaded.
func (c *CPU) Step() error {
	if atomic.LoadUint32(&c.initialized) == 0 {
		return io.EOF
	}

	held := c.mode == AwaitingKey

	instr, err := c.Fetch()
	if err != nil {
		return err
	}

	if !held {
		c.trace(&instr)
	}

	return c.Execute(instr)
}

// Fetch decodes the instruction at PC and advances PC by 2.
// While awaiting a key it returns the held LD Vx, K instead and
// leaves PC alone.
func (c *CPU) Fetch() (Instruction, error) {
	if c.mode == AwaitingKey {
		return c.held, nil
	}

	pc := int(c.pc)

	if !c.memory.Contains(pc, 2) {
		instr := Instruction{IP: pc}
		return instr, NewError(&instr, errors.Wrapf(ErrAddress, "fetch at %04x", pc))
	}

	instr := Decode(c.memory[pc], c.memory[pc+1])
	instr.IP = pc
	c.pc += 2
	return instr, nil
}

// Execute applies the given instruction to the machine state.
// The program counter is expected to already point past it.
func (c *CPU) Execute(instr Instruction) error {
	v := c.v[:]
	x, y := instr.X, instr.Y

	switch instr.Op {
	case arch.CLS:
		c.fb.clear()
	case arch.RET:
		n := len(c.stack)
		if n == 0 {
			return NewError(&instr, ErrStackUnderflow)
		}
		c.pc = c.stack[n-1]
		c.stack = c.stack[:n-1]
	case arch.SYS:
		c.logger.Printf("%04x: machine code routine %03x ignored", instr.IP, instr.NNN)

	case arch.JP:
		c.pc = uint16(instr.NNN)
	case arch.JPV0:
		c.pc = uint16(instr.NNN) + uint16(v[0])
	case arch.CALL:
		if len(c.stack) >= StackDepth {
			return NewError(&instr, ErrStackOverflow)
		}
		c.stack = append(c.stack, c.pc)
		c.pc = uint16(instr.NNN)

	case arch.SEB:
		c.skip(v[x] == byte(instr.NN))
	case arch.SNEB:
		c.skip(v[x] != byte(instr.NN))
	case arch.SER:
		c.skip(v[x] == v[y])
	case arch.SNER:
		c.skip(v[x] != v[y])

	case arch.LDB:
		v[x] = byte(instr.NN)
	case arch.ADDB:
		v[x] += byte(instr.NN)

	case arch.LDR:
		v[x] = v[y]
	case arch.OR:
		v[x] |= v[y]
	case arch.AND:
		v[x] &= v[y]
	case arch.XOR:
		v[x] ^= v[y]
	case arch.ADDR:
		sum := int(v[x]) + int(v[y])
		v[x] = byte(sum)
		v[arch.VF] = flag(sum > 0xff)
	case arch.SUB:
		borrow := v[x] > v[y]
		v[x] -= v[y]
		v[arch.VF] = flag(borrow)
	case arch.SUBN:
		borrow := v[y] > v[x]
		v[x] = v[y] - v[x]
		v[arch.VF] = flag(borrow)
	case arch.SHR:
		out := v[x] & 1
		v[x] >>= 1
		v[arch.VF] = out
	case arch.SHL:
		out := v[x] >> 7
		v[x] <<= 1
		v[arch.VF] = out

	case arch.LDI:
		c.i = uint16(instr.NNN)
	case arch.ADDI:
		c.i += uint16(v[x])
	case arch.RND:
		v[x] = byte(c.rng.Intn(256)) & byte(instr.NN)

	case arch.DRW:
		return c.draw(&instr)

	case arch.SKP:
		c.skip(c.keys[v[x]&0xf])
	case arch.SKNP:
		c.skip(!c.keys[v[x]&0xf])
	case arch.LDK:
		c.awaitKey(instr)

	case arch.LDVDT:
		v[x] = c.delay
	case arch.LDDT:
		c.delay = v[x]
	case arch.LDST:
		c.sound = v[x]

	case arch.LDF:
		c.i = uint16(FontStart + int(v[x]&0xf)*GlyphSize)
	case arch.BCD:
		addr := int(c.i)
		if !c.memory.Contains(addr, 3) {
			return c.addressError(&instr, addr, 3)
		}
		c.memory[addr+0] = v[x] / 100
		c.memory[addr+1] = v[x] / 10 % 10
		c.memory[addr+2] = v[x] % 10
	case arch.STM:
		addr := int(c.i)
		if !c.memory.Contains(addr, len(v)) {
			return c.addressError(&instr, addr, len(v))
		}
		c.memory.Write(addr, v)
	case arch.LDM:
		addr := int(c.i)
		if !c.memory.Contains(addr, len(v)) {
			return c.addressError(&instr, addr, len(v))
		}
		c.memory.Read(addr, v)

	default:
		c.logger.Printf("%04x: unknown instruction %04x ignored", instr.IP, instr.Word)
	}

	return nil
}

// Tick decrements the delay and sound timers toward zero.
// It is meant to be called at 60 Hz, independent of the instruction rate.
func (c *CPU) Tick() {
	if c.delay > 0 {
		c.delay--
	}
	if c.sound > 0 {
		c.sound--
	}
}

// KeyChanged records a keypad transition. Keys outside [0, 15] are ignored.
func (c *CPU) KeyChanged(key int, pressed bool) {
	if key < 0 || key >= KeyCount {
		return
	}
	c.keys[key] = pressed
}

// draw implements DXYN.
func (c *CPU) draw(instr *Instruction) error {
	x0 := int(c.v[instr.X]) % DisplayWidth
	y0 := int(c.v[instr.Y]) % DisplayHeight

	// Rows clipped at the bottom edge are never read.
	rows := instr.N
	if y0+rows > DisplayHeight {
		rows = DisplayHeight - y0
	}

	addr := int(c.i)
	if !c.memory.Contains(addr, rows) {
		return c.addressError(instr, addr, rows)
	}

	collision := c.fb.draw(x0, y0, c.memory[addr:addr+rows])
	c.v[arch.VF] = flag(collision)
	return nil
}

// awaitKey implements FX0A. With no key down the instruction is held and
// re-executed by Step until one is.
func (c *CPU) awaitKey(instr Instruction) {
	for key, down := range c.keys {
		if down {
			c.v[instr.X] = byte(key)
			c.mode = Running
			return
		}
	}

	c.held = instr
	c.mode = AwaitingKey
}

// skip skips the next instruction if cond is true.
func (c *CPU) skip(cond bool) {
	if cond {
		c.pc += 2
	}
}

func (c *CPU) addressError(instr *Instruction, addr, n int) error {
	return NewError(instr, errors.Wrapf(ErrAddress, "I=%04x+%d", addr, n))
}

func flag(v bool) byte {
	if v {
		return 1
	}
	return 0
}
