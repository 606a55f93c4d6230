package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-gl/gl/v4.2-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices"
	"github.com/hexaflex/chip8/devices/fffe/beeper"
	"github.com/hexaflex/chip8/devices/fffe/cart"
	"github.com/hexaflex/chip8/devices/fffe/cpu"
	"github.com/hexaflex/chip8/devices/fffe/display"
	"github.com/hexaflex/chip8/devices/fffe/keypad"
	"github.com/hexaflex/chip8/devices/fffe/tty"
	"github.com/hexaflex/chip8/devices/fffe/wavrec"
)

// Refresh rate for the display and the window title.
const (
	frameInterval = time.Second / 60
	titleInterval = time.Second * 2
)

// App defines application context.
type App struct {
	config       *Config         // Application configuration.
	window       *glfw.Window    // OpenGL/GLFW context.
	cpu          *CPUController  // Machine with program to be run.
	sinks        devices.Map     // Output and input peripherals.
	display      *display.Device // Window render sink.
	keypad       *keypad.Device  // Keyboard and gamepad input.
	terminal     *tty.Device     // Terminal render sink and input.
	titleUpdated time.Time       // Value used to periodically update window title.
	lastRendered time.Time       // Last time a frame was rendered.
}

// NewApp creates a new application instance using the given configuration.
func NewApp(config *Config) *App {
	var a App
	a.config = config

	var sink devices.Display
	if config.TTY {
		a.terminal = tty.New(os.Stdout, a.keyChanged, config.KeyHold)
		sink = a.terminal
	} else {
		a.display = display.New(config.Foreground, config.Background)
		a.keypad = keypad.New(a.keyChanged)
		sink = a.display
	}

	a.cpu = NewCPUController(cart.New(config.Program), config.Rate, sink, a.printTrace)
	a.cpu.Seed(config.Seed)
	return &a
}

// Run runs the application and does not return until it is finished
// or an error occured during initialization.
func (a *App) Run() error {
	if !a.config.TTY {
		if err := a.initGL(); err != nil {
			return err
		}
	}

	defer a.dispose()

	log.Println(Version())

	if err := a.startDevices(); err != nil {
		return err
	}

	if len(a.config.StatsView) > 0 {
		launchStatsView(a.config.StatsView)
	}

	if !a.config.TTY {
		printHelp()
	}

	if err := a.cpu.Load(); err != nil {
		return err
	}

	if !a.config.Debug {
		a.cpu.Start()
	}

	if a.config.TTY {
		for a.terminal.Poll(time.Now()) {
			a.mainLoop()
		}
		return nil
	}

	for !a.window.ShouldClose() {
		a.keypad.Update()
		a.mainLoop()
		glfw.PollEvents()
	}

	return nil
}

// mainLoop performs all main loop operations.
func (a *App) mainLoop() {
	if err := a.cpu.Update(); err != nil {
		log.Println(err)
	}

	// Periodically render display contents.
	if time.Since(a.lastRendered) >= frameInterval {
		a.lastRendered = time.Now()
		a.render()
	}

	// Periodically update the window title to show the measured instruction rate.
	if a.window != nil && time.Since(a.titleUpdated) >= titleInterval {
		a.titleUpdated = time.Now()
		freq := prettyFrequency(a.cpu.Frequency())
		a.window.SetTitle(fmt.Sprintf("%s %s - %s", AppName, AppVersion, freq))
	}

	// Sleep until the next instruction, timer tick or frame is due.
	if d := a.cpu.Until(frameInterval - time.Since(a.lastRendered)); d > 0 {
		time.Sleep(d)
	}
}

func (a *App) render() {
	if a.terminal != nil {
		a.terminal.Draw()
		return
	}

	gl.Clear(gl.COLOR_BUFFER_BIT)
	a.display.Draw()
	a.window.SwapBuffers()
}

// startDevices initializes the render, input and tone peripherals.
// A missing audio device is not fatal; the program runs silently.
func (a *App) startDevices() error {
	if a.terminal != nil {
		a.sinks.Connect(a.terminal)
	} else {
		a.sinks.Connect(a.display)
		a.sinks.Connect(a.keypad)
	}

	var tones devices.ToneSet

	if len(a.config.WavFile) > 0 {
		rec := wavrec.New(a.config.WavFile, devices.ToneFreq, devices.ToneVolume)
		a.sinks.Connect(rec)
		tones = append(tones, rec)
	}

	if err := a.sinks.Startup(); err != nil {
		return err
	}

	if !a.config.Mute {
		beep := beeper.New(devices.ToneFreq, devices.ToneVolume)
		if err := beep.Startup(); err != nil {
			log.Println(beep.ID(), "audio unavailable:", err)
		} else {
			a.sinks.Connect(beep)
			tones = append(tones, beep)
		}
	}

	a.cpu.SetTone(tones)
	return nil
}

// dispose ensures openGL/GLFW and other resources are cleaned up.
func (a *App) dispose() {
	if err := a.cpu.Shutdown(); err != nil {
		log.Println(err)
	}

	if err := a.sinks.Shutdown(); err != nil {
		log.Println(err)
	}

	if a.window != nil {
		a.window.Destroy()
		a.window = nil
	}

	if !a.config.TTY {
		glfw.Terminate()
	}
}

// keyChanged forwards keypad transitions from any input adapter.
func (a *App) keyChanged(key int, pressed bool) {
	a.cpu.KeyChanged(key, pressed)
}

func (a *App) keyCallback(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if a.keypad.Key(key, action) || action != glfw.Press {
		return
	}

	var err error

	switch key {
	case glfw.KeyEscape:
		a.window.SetShouldClose(true)
	case glfw.KeyF1:
		printHelp()
	case glfw.KeyF5:
		err = a.cpu.Load()
	case glfw.KeyF6:
		a.cpu.ToggleRun()
		err = a.cpu.Halted()
	case glfw.KeyF7:
		err = a.cpu.Step()
	case glfw.KeyF8:
		a.config.PrintTrace = !a.config.PrintTrace
	}

	if err != nil {
		log.Println(err)
	}
}

// initGL initializes GLFW and openGL.
func (a *App) initGL() error {
	err := glfw.Init()
	if err != nil {
		return errors.Wrapf(err, "glfw.Init failed")
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Visible, glfw.True)
	glfw.WindowHint(glfw.Focused, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 2)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	var monitor *glfw.Monitor

	width := display.Width * a.config.ScaleFactor
	height := display.Height * a.config.ScaleFactor

	if a.config.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
		mode := monitor.GetVideoMode()

		width = mode.Width
		height = mode.Height

		glfw.WindowHint(glfw.Decorated, glfw.False)
		glfw.WindowHint(glfw.Maximized, glfw.True)
	} else {
		glfw.WindowHint(glfw.Decorated, glfw.True)
		glfw.WindowHint(glfw.Maximized, glfw.False)
	}

	a.window, err = glfw.CreateWindow(width, height, AppName, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrapf(err, "glfw.CreateWindow failed")
	}

	a.window.MakeContextCurrent()
	a.window.SetKeyCallback(a.keyCallback)

	glfw.SwapInterval(0)

	err = gl.Init()
	if err != nil {
		a.window.Destroy()
		a.window = nil
		glfw.Terminate()
		return errors.Wrapf(err, "gl.Init failed")
	}

	gl.ClearColor(0, 0, 0, 1.0)
	return nil
}

// printTrace prints instruction trace data. This can be toggled
// on off through a.config.PrintTrace.
func (a *App) printTrace(i *cpu.Instruction) {
	if a.config.PrintTrace {
		fmt.Fprintln(os.Stderr, i)
	}
}

// launchStatsView serves runtime statistics in the background.
func launchStatsView(addr string) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()

	log.Printf("stats server available at http://%s/debug/statsview", addr)
}

// printHelp writes a short overview of supported shortcut keys to stdout.
func printHelp() {
	var sb strings.Builder
	sb.WriteString("shortcut keys:\n")
	sb.WriteString(" ESC      Exit the program.\n")
	sb.WriteString(" F1       Display this help.\n")
	sb.WriteString(" F5       (re)load the program from disk and reset the machine.\n")
	sb.WriteString(" F6       Start/Stop program execution.\n")
	sb.WriteString(" F7       Perform a single execution step.\n")
	sb.WriteString(" F8       Enable/Disable debug trace output.\n")
	sb.WriteString("keypad:\n")
	sb.WriteString(" 1 2 3 4\n")
	sb.WriteString(" Q W E R\n")
	sb.WriteString(" A S D F\n")
	sb.WriteString(" Z X C V")
	log.Println(sb.String())
}

// prettyFrequency returns a human-readable version of the given clock frequency in herz.
func prettyFrequency(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2f GHz", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2f MHz", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2f KHz", v/1e3)
	default:
		return fmt.Sprintf("%.2f Hz", v)
	}
}
