package devices

// Display receives framebuffer updates from the machine.
// Coordinates address the 64x32 pixel grid.
type Display interface {
	// SetPixel lights or blanks a single pixel.
	SetPixel(x, y int, on bool)

	// Clear blanks the whole grid.
	Clear()

	// Present is called once after a batch of updates.
	Present()
}

// Tone is gated on and off by the driver according to the sound timer.
type Tone interface {
	Enable()
	Disable()
}

// NopDisplay is a Display that discards all updates.
type NopDisplay struct{}

func (NopDisplay) SetPixel(int, int, bool) {}
func (NopDisplay) Clear()                  {}
func (NopDisplay) Present()                {}

// NopTone is a Tone that never makes a sound.
type NopTone struct{}

func (NopTone) Enable()  {}
func (NopTone) Disable() {}

// ToneSet forwards the gate to every tone sink it contains.
type ToneSet []Tone

// Enable enables all tone sinks in the set.
func (ts ToneSet) Enable() {
	for _, t := range ts {
		t.Enable()
	}
}

// Disable disables all tone sinks in the set.
func (ts ToneSet) Disable() {
	for _, t := range ts {
		t.Disable()
	}
}

// Default tone properties.
const (
	SampleRate = 44100 // Output sample rate in herz.
	ToneFreq   = 440   // Pitch of the beep in herz.
	ToneVolume = 0.25  // Amplitude in the range [0, 1].
)

// SquareWave generates a phase-continuous square wave.
type SquareWave struct {
	phase    float64
	phaseInc float64
	volume   float64
}

// NewSquareWave creates a generator for the given pitch, sample rate and volume.
func NewSquareWave(freq, rate int, volume float64) *SquareWave {
	return &SquareWave{
		phaseInc: float64(freq) / float64(rate),
		volume:   volume,
	}
}

// Next returns the next sample in the range [-volume, volume].
func (w *SquareWave) Next() float64 {
	v := -w.volume
	if w.phase <= 0.5 {
		v = w.volume
	}

	w.phase += w.phaseInc
	for w.phase >= 1 {
		w.phase--
	}

	return v
}

// Fill writes len(p) samples scaled to the given amplitude into p.
func (w *SquareWave) Fill(p []int, amplitude int) {
	for i := range p {
		p[i] = int(w.Next() * float64(amplitude))
	}
}
