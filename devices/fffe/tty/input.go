package tty

import "time"

// DefaultHold is how long a typed key stays down.
// Terminals report key presses but never releases.
const DefaultHold = 150 * time.Millisecond

// KeyCount is the number of keys on the hex keypad.
const KeyCount = 16

// ctrlC ends the session; raw mode turns off signal generation.
const ctrlC = 0x03

var keymap = map[byte]int{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xc,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xd,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xe,
	'z': 0xa, 'x': 0x0, 'c': 0xb, 'v': 0xf,
}

// Key returns the hex key for the given typed character.
func Key(b byte) (int, bool) {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	k, ok := keymap[b]
	return k, ok
}

// Input turns typed characters into hex key transitions.
type Input struct {
	keyFunc func(key int, pressed bool)
	hold    time.Duration
	release [KeyCount]time.Time
	down    [KeyCount]bool
}

// NewInput creates an input reporting transitions to f.
func NewInput(f func(key int, pressed bool), hold time.Duration) *Input {
	if f == nil {
		f = func(int, bool) { /* nop */ }
	}
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Input{keyFunc: f, hold: hold}
}

// Feed handles a typed character at the given time.
// Returns false if the user asked to quit.
func (in *Input) Feed(b byte, now time.Time) bool {
	if b == ctrlC {
		return false
	}

	k, ok := Key(b)
	if !ok {
		return true
	}

	// Auto-repeat extends the hold.
	in.release[k] = now.Add(in.hold)
	if !in.down[k] {
		in.down[k] = true
		in.keyFunc(k, true)
	}

	return true
}

// Expire releases every key whose hold time has passed.
func (in *Input) Expire(now time.Time) {
	for k, down := range in.down {
		if down && !now.Before(in.release[k]) {
			in.down[k] = false
			in.keyFunc(k, false)
		}
	}
}

// ReleaseAll releases every held key.
func (in *Input) ReleaseAll() {
	for k, down := range in.down {
		if down {
			in.down[k] = false
			in.keyFunc(k, false)
		}
	}
}
