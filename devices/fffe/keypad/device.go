// Package keypad maps the host keyboard and a gamepad onto the hex keypad.
package keypad

import (
	"log"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/hexaflex/chip8/devices"
)

// KeyCount is the number of keys on the hex keypad.
const KeyCount = 16

// The hex keypad is laid out on the left side of a QWERTY keyboard:
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  Q W E R
//	7 8 9 E      A S D F
//	A 0 B F      Z X C V
var keyboard = map[glfw.Key]int{
	glfw.Key1: 0x1, glfw.Key2: 0x2, glfw.Key3: 0x3, glfw.Key4: 0xc,
	glfw.KeyQ: 0x4, glfw.KeyW: 0x5, glfw.KeyE: 0x6, glfw.KeyR: 0xd,
	glfw.KeyA: 0x7, glfw.KeyS: 0x8, glfw.KeyD: 0x9, glfw.KeyF: 0xe,
	glfw.KeyZ: 0xa, glfw.KeyX: 0x0, glfw.KeyC: 0xb, glfw.KeyV: 0xf,
}

// Gamepad buttons land on the keys most games use for movement and action.
var gamepad = map[glfw.GamepadButton]int{
	glfw.ButtonDpadUp:      0x2,
	glfw.ButtonDpadLeft:    0x4,
	glfw.ButtonDpadRight:   0x6,
	glfw.ButtonDpadDown:    0x8,
	glfw.ButtonA:           0x5,
	glfw.ButtonB:           0x0,
	glfw.ButtonX:           0xa,
	glfw.ButtonY:           0xb,
	glfw.ButtonLeftBumper:  0x7,
	glfw.ButtonRightBumper: 0x9,
}

// KeyboardKey returns the hex key for the given keyboard key.
func KeyboardKey(key glfw.Key) (int, bool) {
	k, ok := keyboard[key]
	return k, ok
}

// GamepadKey returns the hex key for the given gamepad button.
func GamepadKey(btn glfw.GamepadButton) (int, bool) {
	k, ok := gamepad[btn]
	return k, ok
}

// source is the set of hex keys held by one input source.
type source [KeyCount]bool

// Device merges keyboard and gamepad input. A hex key is down while
// either source holds it.
type Device struct {
	keyFunc  devices.KeyFunc
	joy      glfw.Joystick
	keyboard source
	gamepad  source
	down     source
	hasPad   bool
}

var _ devices.Device = &Device{}

// New creates a new device which reports hex key transitions to f.
func New(f devices.KeyFunc) *Device {
	if f == nil {
		f = func(int, bool) { /* nop */ }
	}
	return &Device{keyFunc: f}
}

// ID returns the device id.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0003)
}

// Startup detects any connected gamepad.
func (d *Device) Startup() error {
	glfw.SetJoystickCallback(d.configure)

	for joy := glfw.Joystick1; joy <= glfw.JoystickLast; joy++ {
		if joy.Present() && joy.IsGamepad() {
			d.configure(joy, glfw.Connected)
			break
		}
	}

	return nil
}

// Shutdown releases all held keys.
func (d *Device) Shutdown() error {
	glfw.SetJoystickCallback(nil)
	d.keyboard = source{}
	d.gamepad = source{}
	d.hasPad = false
	d.sync()
	return nil
}

// Key handles a keyboard event. Returns false if the key is not part
// of the keypad layout.
func (d *Device) Key(key glfw.Key, action glfw.Action) bool {
	k, ok := KeyboardKey(key)
	if !ok {
		return false
	}

	switch action {
	case glfw.Press:
		d.keyboard[k] = true
	case glfw.Release:
		d.keyboard[k] = false
	default:
		return true
	}

	d.sync()
	return true
}

// Update polls the gamepad, if one is connected.
func (d *Device) Update() {
	if !d.hasPad {
		return
	}

	state := d.joy.GetGamepadState()
	if state == nil {
		return
	}

	var pad source
	for btn, action := range state.Buttons {
		if k, ok := GamepadKey(glfw.GamepadButton(btn)); ok && action == glfw.Press {
			pad[k] = true
		}
	}

	d.gamepad = pad
	d.sync()
}

// Down returns true if the given hex key is currently held by any source.
func (d *Device) Down(key int) bool {
	if key < 0 || key >= KeyCount {
		return false
	}
	return d.down[key]
}

// sync recomputes the merged key state and reports every transition.
func (d *Device) sync() {
	for k := range d.down {
		down := d.keyboard[k] || d.gamepad[k]
		if down != d.down[k] {
			d.down[k] = down
			d.keyFunc(k, down)
		}
	}
}

// configure is called whenever a joystick is connected or disconnected from the system.
func (d *Device) configure(joy glfw.Joystick, event glfw.PeripheralEvent) {
	d.hasPad = event == glfw.Connected && joy.IsGamepad()
	d.joy = joy

	if d.hasPad {
		log.Println(d.ID(), "gamepad connected:", joy.GetGamepadName())
	} else {
		log.Println(d.ID(), "gamepad disconnected")
	}

	d.gamepad = source{}
	d.sync()
}
