package control

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gridsynth/ether-core/internal/engine"
	"github.com/gridsynth/ether-core/internal/sequencer"
	"github.com/hypebeast/go-osc/osc"
)

// doubleTapWindow is the §6 300ms window for the function row's mute/solo
// overlay and the serial controller's double-press detection.
const doubleTapWindow = 300 * time.Millisecond

const (
	gridCols = 4
	gridRows = 4
)

// GridController wraps go-osc for the monome-style grid transport of §6:
// the registration handshake, the function row (y=0), the 4x4 pad zone
// (origin (0,1)), and the accent auxiliary at (4,1).
type GridController struct {
	prefix    string
	localPort int
	server    *osc.Server
	disp     *osc.StandardDispatcher
	registerClient func(host string, port int) *osc.Client

	seq   *sequencer.Sequencer
	state *ControlState
	notes NotePort
	log   *log.Logger

	device *osc.Client // current registered grid device, nil until announced

	held        [gridCols * gridRows]bool
	lastFuncTap [5]time.Time

	parseErrors uint64
}

// NewGridController creates a GridController listening on localPort for a
// device announcing itself under prefix (default "/monome"). It does not
// start serving until Serve is called.
func NewGridController(seq *sequencer.Sequencer, state *ControlState, notes NotePort, prefix string, localPort int, logger *log.Logger) (*GridController, error) {
	if prefix == "" {
		prefix = "/monome"
	}
	if logger == nil {
		logger = log.Default()
	}
	g := &GridController{
		prefix:    prefix,
		localPort: localPort,
		seq:       seq,
		state:     state,
		notes:     notes,
		log:       logger,
	}
	g.registerClient = func(host string, port int) *osc.Client { return osc.NewClient(host, port) }

	d := osc.NewStandardDispatcher()
	if err := d.AddMsgHandler("/serialosc/device", g.handleAnnounce); err != nil {
		return nil, fmt.Errorf("control: registering /serialosc/device handler: %w", err)
	}
	if err := d.AddMsgHandler("/serialosc/add", g.handleAnnounce); err != nil {
		return nil, fmt.Errorf("control: registering /serialosc/add handler: %w", err)
	}
	if err := d.AddMsgHandler(prefix+"/grid/key", g.handleKey); err != nil {
		return nil, fmt.Errorf("control: registering grid key handler: %w", err)
	}
	g.disp = d
	g.server = &osc.Server{Addr: fmt.Sprintf(":%d", localPort), Dispatcher: d}
	return g, nil
}

// Serve blocks, running the OSC server until it errors or the process
// exits. Run it on its own goroutine per §5's UI/control domain.
func (g *GridController) Serve() error {
	g.log.Info("grid controller listening", "addr", g.server.Addr, "prefix", g.prefix)
	return g.server.ListenAndServe()
}

// ParseErrors reports the count of malformed incoming OSC messages, for §7
// diagnostics.
func (g *GridController) ParseErrors() uint64 { return g.parseErrors }

// handleAnnounce implements the §6 registration handshake: on a device
// announcement carrying (id, type, port), reply with /sys/host, /sys/port,
// /sys/prefix, /sys/info addressed to the device.
func (g *GridController) handleAnnounce(msg *osc.Message) {
	if len(msg.Arguments) < 3 {
		g.parseErrors++
		return
	}
	devicePort, ok := msg.Arguments[2].(int32)
	if !ok {
		g.parseErrors++
		return
	}
	client := g.registerClient("localhost", int(devicePort))
	g.device = client

	send := func(m *osc.Message) {
		if err := client.Send(m); err != nil {
			g.log.Warn("grid registration send failed", "err", err)
		}
	}
	hostMsg := osc.NewMessage("/sys/host")
	hostMsg.Append("localhost")
	send(hostMsg)

	portMsg := osc.NewMessage("/sys/port")
	portMsg.Append(int32(g.localPort))
	send(portMsg)

	prefixMsg := osc.NewMessage("/sys/prefix")
	prefixMsg.Append(g.prefix)
	send(prefixMsg)

	send(osc.NewMessage("/sys/info"))

	g.log.Info("grid device registered", "port", devicePort)
	g.ClearLEDs(0)
}

// handleKey dispatches an incoming /<prefix>/grid/key (x, y, state) per §6's
// function row and pad zone layout.
func (g *GridController) handleKey(msg *osc.Message) {
	if len(msg.Arguments) < 3 {
		g.parseErrors++
		return
	}
	x, xok := asInt(msg.Arguments[0])
	y, yok := asInt(msg.Arguments[1])
	stateVal, sok := asInt(msg.Arguments[2])
	if !xok || !yok || !sok {
		g.parseErrors++
		return
	}
	pressed := stateVal != 0

	switch {
	case y == 0:
		g.handleFunctionRow(x, pressed)
	case y == 1 && x == 4:
		if pressed {
			v := !g.state.Accent.Load()
			g.state.Accent.Store(v)
		}
	case y >= 1 && y <= gridRows && x >= 0 && x < gridCols:
		g.handlePad((y-1)*gridCols+x, pressed)
	}
}

func (g *GridController) handleFunctionRow(x int, pressed bool) {
	switch x {
	case 0:
		if pressed {
			g.seq.TogglePlay()
		}
	case 1:
		if pressed {
			g.state.Write.Store(!g.state.Write.Load())
		}
	case 2:
		g.state.EngineHold.Store(pressed)
	case 3:
		if pressed {
			g.seq.ClearPattern(int(g.state.ActiveSlot.Load()))
		}
	case 4:
		if !pressed {
			return
		}
		slot := int(g.state.ActiveSlot.Load())
		now := time.Now()
		if now.Sub(g.lastFuncTap[4]) <= doubleTapWindow {
			g.seq.SetSolo(slot, g.state.ToggleSolo(slot))
		} else {
			g.seq.SetMute(slot, g.state.ToggleMute(slot))
		}
		g.lastFuncTap[4] = now
	}
}

// handlePad implements the §6 pad zone: note triggering in play mode,
// pattern toggling in write mode, with held-state debounce suppressing
// repeat press events. In write mode while the transport is running, the
// edited step is also auditioned immediately through the sequencer's
// preview-suppression marker so it is heard once, not twice.
func (g *GridController) handlePad(pad int, pressed bool) {
	if pad < 0 || pad >= len(g.held) || g.held[pad] == pressed {
		return
	}
	g.held[pad] = pressed

	slot := int(g.state.ActiveSlot.Load())
	velocity := 0.8
	if g.state.Accent.Load() {
		velocity = 1.0
	}

	if g.state.Write.Load() {
		if !pressed {
			return
		}
		if g.seq.IsDrumSlot(slot) {
			step := g.seq.CurrentStep()
			active := g.seq.DrumStepActive(slot, pad, step)
			g.seq.SetDrumStep(slot, pad, step, !active)
			if g.seq.Playing() && !active {
				g.seq.PreviewStep(slot, pad, step, pad, velocity)
			}
		} else {
			note := 60 + pad
			active := g.seq.StepActive(slot, pad)
			g.seq.SetStep(slot, pad, !active, note, velocity)
			if g.seq.Playing() && !active {
				g.seq.PreviewStep(slot, 0, pad, note, velocity)
			}
		}
		return
	}

	note := 60 + pad
	if pressed {
		g.notes.NoteOn(slot, pad, engine.Note{Number: note, Velocity: velocity})
	} else if !g.state.EngineHold.Load() {
		g.notes.NoteOff(slot, pad, note)
	}
}

// ClearLEDs sends /<prefix>/grid/led/all to the registered device.
func (g *GridController) ClearLEDs(intensity int) {
	if g.device == nil {
		return
	}
	msg := osc.NewMessage(g.prefix + "/grid/led/all")
	msg.Append(int32(intensity))
	_ = g.device.Send(msg)
}

// SetLED paints a single LED at (x, y) to the given brightness (0..15).
func (g *GridController) SetLED(x, y, brightness int) {
	if g.device == nil {
		return
	}
	msg := osc.NewMessage(g.prefix + "/grid/led/level/set")
	msg.Append(int32(x))
	msg.Append(int32(y))
	msg.Append(int32(brightness))
	_ = g.device.Send(msg)
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
