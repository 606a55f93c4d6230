package main

import (
	"io"
	"log"
	"time"

	"github.com/hexaflex/chip8/devices"
	"github.com/hexaflex/chip8/devices/fffe/cart"
	"github.com/hexaflex/chip8/devices/fffe/clock"
	"github.com/hexaflex/chip8/devices/fffe/cpu"
)

// CPUController controls the execution of a CPU.
//
// It paces instructions and timers against wall time and gates the tone
// according to the sound timer.
type CPUController struct {
	cpu        *cpu.CPU
	cart       *cart.Device
	instr      *clock.Device // Instruction cadence.
	timer      *clock.Device // 60 Hz timer cadence.
	tone       devices.Tone
	start      time.Time
	cycleCount uint64
	running    bool
	halted     error // Fatal error latched until the next Load.
}

// NewCPUController creates a new CPU controller running the program in the
// given cartridge at the given instruction rate.
func NewCPUController(rom *cart.Device, rate int, display devices.Display, trace cpu.TraceFunc) *CPUController {
	c := &CPUController{
		cpu:   cpu.New(display, trace),
		cart:  rom,
		instr: clock.New(1, rate),
		timer: clock.New(2, clock.TimerRate),
		tone:  devices.NopTone{},
	}

	c.cpu.Connect(c.cart)
	c.cpu.Connect(c.instr)
	c.cpu.Connect(c.timer)
	return c
}

// CPU returns the underlying machine.
func (c *CPUController) CPU() *cpu.CPU {
	return c.cpu
}

// SetTone sets the sink gated by the sound timer.
func (c *CPUController) SetTone(t devices.Tone) {
	if t == nil {
		t = devices.NopTone{}
	}
	c.tone = t
}

// Seed makes random numbers reproducible. Zero leaves the seed alone.
func (c *CPUController) Seed(v int64) {
	if v != 0 {
		c.cpu.Seed(v)
	}
}

// Running returns true if the CPU is currently running.
func (c *CPUController) Running() bool {
	return c.running
}

// Frequency returns the measured instruction rate in herz.
func (c *CPUController) Frequency() float64 {
	if !c.running {
		return 0
	}
	return float64(c.cycleCount) / time.Since(c.start).Seconds()
}

// Halted returns the fatal error which stopped the machine, if any.
func (c *CPUController) Halted() error {
	return c.halted
}

// ToggleRun starts or stops program execution.
// A halted machine stays paused until it is reloaded.
func (c *CPUController) ToggleRun() {
	c.setRunning(!c.running)
}

// Start begins execution of the program.
func (c *CPUController) Start() {
	c.setRunning(true)
}

// Stop pauses execution of the program.
func (c *CPUController) Stop() {
	c.setRunning(false)
}

// Update runs as many instructions and timer ticks as are due and gates
// the tone. It is called once per main loop iteration.
func (c *CPUController) Update() error {
	var err error

	if c.running {
		for n := c.instr.Advance(); n > 0 && err == nil; n-- {
			err = c.Step()
		}

		for n := c.timer.Advance(); n > 0; n-- {
			c.cpu.Tick()
		}
	}

	c.gate()
	return err
}

// Step performs a single execution step.
// A fatal error stops execution and is returned by every subsequent
// Step until the program is reloaded.
func (c *CPUController) Step() error {
	if c.halted != nil {
		return c.halted
	}

	c.cycleCount++

	err := c.cpu.Step()
	if err != nil {
		c.setRunning(false)
		c.tone.Disable()
		if err != io.EOF {
			c.halted = err
			return err
		}
	}

	return nil
}

// Until returns the time left until the next instruction or timer tick is
// due. A paused machine has nothing due within limit.
func (c *CPUController) Until(limit time.Duration) time.Duration {
	if !c.running {
		return limit
	}

	left := c.instr.Until()
	if t := c.timer.Until(); t < left {
		left = t
	}

	if left > limit {
		return limit
	}
	return left
}

// KeyChanged forwards a keypad transition to the cpu.
func (c *CPUController) KeyChanged(key int, pressed bool) {
	c.cpu.KeyChanged(key, pressed)
}

// Load (re)reads the program from the cartridge and restarts the machine.
func (c *CPUController) Load() error {
	running := c.running
	c.setRunning(false)
	c.halted = nil

	c.cpu.Shutdown()
	if err := c.cpu.Startup(); err != nil {
		c.cpu.Shutdown()
		return err
	}

	image := c.cart.Image()
	log.Printf("loaded %d bytes from %s", len(image), c.cart.File())
	c.cpu.Load(image)
	c.setRunning(running)
	return nil
}

// Shutdown disposes of CPU and peripheral resources.
func (c *CPUController) Shutdown() error {
	c.setRunning(false)
	c.tone.Disable()
	return c.cpu.Shutdown()
}

// gate enables the tone while the sound timer is non-zero.
func (c *CPUController) gate() {
	if c.running && c.cpu.Sound() > 0 {
		c.tone.Enable()
	} else {
		c.tone.Disable()
	}
}

// setRunning determines if the CPU is running or is paused.
// Time spent paused is not caught up on.
func (c *CPUController) setRunning(v bool) {
	c.running = v && c.halted == nil
	c.start = time.Now()
	c.cycleCount = 0
	c.instr.Reset()
	c.timer.Reset()
}
