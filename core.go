// Package gridsynth wires the full audio graph described across
// internal/slot, internal/router, internal/fx, internal/master,
// internal/bridge, internal/sequencer, and internal/control into one
// realtime engine: Core. This is the root of the dependency graph the
// teacher's player.go used to occupy.
package gridsynth

import (
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/gridsynth/ether-core/internal/audio"
	"github.com/gridsynth/ether-core/internal/bridge"
	"github.com/gridsynth/ether-core/internal/control"
	"github.com/gridsynth/ether-core/internal/engine"
	"github.com/gridsynth/ether-core/internal/fx"
	"github.com/gridsynth/ether-core/internal/lfo"
	"github.com/gridsynth/ether-core/internal/master"
	"github.com/gridsynth/ether-core/internal/router"
	"github.com/gridsynth/ether-core/internal/sequencer"
	"github.com/gridsynth/ether-core/internal/slot"
)

// DefaultCrossfadeMs is the engine-swap crossfade duration SetEngineType
// requests, within §4.8's [5,500]ms bound.
const DefaultCrossfadeMs = 150.0

// Config collects the process-lifetime settings a Core is built from,
// populated by cmd/gridsynthd from pflag-parsed command-line flags.
type Config struct {
	SampleRate   float64
	BlockSize    int
	SlotCount    int
	BPM          float64
	OSCPrefix    string
	OSCPort      int
	SerialDevice string // empty disables the serial controller
	Logger       *log.Logger
}

// swapRequest is published by SetEngineType (control thread) and consumed
// by ProcessBlock (audio thread), per §5's "prepared off-thread, published
// atomically" engine-swap rule.
type swapRequest struct {
	eng         engine.Engine
	crossfadeMs float64
}

// Core is the realtime audio graph and its three cooperating domains'
// shared wiring: the audio callback (ProcessBlock / audio.BlockSource), the
// sequencer goroutine, and the control plane (OSC grid + serial encoders).
type Core struct {
	cfg Config
	log *log.Logger

	slots  []*slot.Slot
	router *router.Router
	lfos   *lfo.Bank
	buses  *fx.Buses
	master *master.Chain
	bridge *bridge.Bridge
	seq    *sequencer.Sequencer
	state  *control.ControlState
	grid   *control.GridController
	serial *control.SerialController
	host   *audio.Host

	pendingSwap        []atomic.Pointer[swapRequest]
	allNotesOffPending []atomic.Bool

	scratchL, scratchR []float64
}

// New builds the full graph: slots bound to a default engine, the router,
// FX buses, master chain, trigger bridge, sequencer, and control plane
// (grid always, serial only if cfg.SerialDevice is set). It does not start
// any goroutines or open audio output; call Start for that.
func New(cfg Config) (*Core, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 128
	}
	if cfg.SlotCount <= 0 {
		cfg.SlotCount = 8
	}
	if cfg.BPM <= 0 {
		cfg.BPM = 120
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	c := &Core{
		cfg:                cfg,
		log:                cfg.Logger,
		lfos:               lfo.New(),
		bridge:             bridge.New(cfg.SlotCount),
		pendingSwap:        make([]atomic.Pointer[swapRequest], cfg.SlotCount),
		allNotesOffPending: make([]atomic.Bool, cfg.SlotCount),
		scratchL:           make([]float64, cfg.BlockSize),
		scratchR:           make([]float64, cfg.BlockSize),
	}
	c.lfos.SetBPM(cfg.BPM)
	c.router = router.New(cfg.SlotCount, c.lfos)
	c.buses = fx.NewBuses(cfg.SampleRate)
	c.master = master.NewChain(cfg.SampleRate)
	c.seq = sequencer.New(c.bridge, cfg.SlotCount, cfg.BPM)

	c.slots = make([]*slot.Slot, cfg.SlotCount)
	for i := range c.slots {
		sl := slot.New(cfg.SampleRate, cfg.BlockSize)
		eng, err := engine.New("analog", engine.MaxVoicesPerSlot)
		if err != nil {
			return nil, fmt.Errorf("gridsynth: creating default engine for slot %d: %w", i, err)
		}
		if err := eng.Initialize(cfg.SampleRate); err != nil {
			return nil, fmt.Errorf("gridsynth: initializing default engine for slot %d: %w", i, err)
		}
		sl.SetEngine(eng)
		c.slots[i] = sl
		c.router.Bind(i, eng, sl.Chain)
	}

	c.state = control.NewControlState(cfg.SlotCount)

	grid, err := control.NewGridController(c.seq, c.state, c, cfg.OSCPrefix, cfg.OSCPort, c.log.With("component", "osc"))
	if err != nil {
		return nil, fmt.Errorf("gridsynth: creating grid controller: %w", err)
	}
	c.grid = grid

	if cfg.SerialDevice != "" {
		serial, err := control.NewSerialController(cfg.SerialDevice, paramPortAdapter{c.router}, c.state, c.log.With("component", "serial"))
		if err != nil {
			return nil, fmt.Errorf("gridsynth: creating serial controller: %w", err)
		}
		c.serial = serial
	}

	host, err := audio.NewHost(int(cfg.SampleRate), cfg.BlockSize, c)
	if err != nil {
		return nil, fmt.Errorf("gridsynth: creating audio host: %w", err)
	}
	c.host = host

	return c, nil
}

// paramPortAdapter narrows router.Router to control.ParamPort: the router
// returns a diagnostics Destination the control plane has no use for.
type paramPortAdapter struct{ r *router.Router }

func (p paramPortAdapter) SetParameter(slot int, id engine.ParamID, value float64) {
	p.r.SetParameter(slot, id, value)
}

// Start launches the sequencer clock, the OSC and serial control threads,
// and begins pulling audio, per §5's three cooperating domains.
func (c *Core) Start() {
	c.seq.Start()
	go func() {
		if err := c.grid.Serve(); err != nil {
			c.log.Error("grid controller stopped", "err", err)
		}
	}()
	if c.serial != nil {
		go func() {
			if err := c.serial.Run(); err != nil {
				c.log.Error("serial controller stopped", "err", err)
			}
		}()
	}
	c.host.Play()
}

// Stop halts the sequencer and audio output and releases the serial
// device. The OSC server has no clean shutdown in this transport and is
// left to exit with the process.
func (c *Core) Stop() {
	c.seq.Stop()
	if err := c.host.Stop(); err != nil {
		c.log.Warn("audio host stop failed", "err", err)
	}
	if c.serial != nil {
		if err := c.serial.Close(); err != nil {
			c.log.Warn("serial controller close failed", "err", err)
		}
	}
}

// ProcessBlock implements audio.BlockSource: the realtime audio callback.
// It never allocates, locks, or blocks, per §5's audio domain contract.
func (c *Core) ProcessBlock(outL, outR []float64) {
	n := len(outL)
	for i := 0; i < n; i++ {
		outL[i], outR[i] = 0, 0
	}

	c.applyPendingSwaps()
	c.applyAllNotesOff()
	c.drainTriggers()

	for i := 0; i < n; i++ {
		c.lfos.Process(c.cfg.SampleRate)
	}
	c.router.ProcessModulation()

	for _, sl := range c.slots {
		sl.ProcessBlock(n, c.scratchL, c.scratchR)
		for i := 0; i < n; i++ {
			outL[i] += c.scratchL[i]
			outR[i] += c.scratchR[i]
		}
	}

	for i := 0; i < n; i++ {
		var busL, busR [2]float64
		for _, sl := range c.slots {
			l0, r0 := sl.SendL(0, n), sl.SendR(0, n)
			l1, r1 := sl.SendL(1, n), sl.SendR(1, n)
			busL[0] += l0[i]
			busR[0] += r0[i]
			busL[1] += l1[i]
			busR[1] += r1[i]
		}
		c.buses.AccumulateSend(0, busL[0], busR[0])
		c.buses.AccumulateSend(1, busL[1], busR[1])
		wetL, wetR := c.buses.ProcessSample()
		outL[i] += wetL
		outR[i] += wetR
	}

	for i := 0; i < n; i++ {
		outL[i], outR[i] = c.master.ProcessSample(outL[i], outR[i])
	}
}

func (c *Core) applyPendingSwaps() {
	for i := range c.slots {
		req := c.pendingSwap[i].Swap(nil)
		if req == nil {
			continue
		}
		c.slots[i].SwapEngine(req.eng, req.crossfadeMs)
		c.router.Bind(i, req.eng, c.slots[i].Chain)
	}
}

// applyAllNotesOff implements §5's allNotesOff cancellation: engine silence
// on all slots requested, with any in-flight triggers for that cycle
// drained and ignored rather than dispatched.
func (c *Core) applyAllNotesOff() {
	for i := range c.slots {
		if !c.allNotesOffPending[i].Swap(false) {
			continue
		}
		for step := 0; step < bridge.Steps; step++ {
			c.bridge.DrainStep(i, step)
			c.bridge.DrainNoteOff(i, step)
		}
		c.slots[i].AllNotesOff()
	}
}

func (c *Core) drainTriggers() {
	for i, sl := range c.slots {
		for step := 0; step < bridge.Steps; step++ {
			if note, velocity, ok := c.bridge.DrainStep(i, step); ok {
				sl.NoteOn(engine.Note{Number: note, Velocity: velocity})
				c.router.TriggerInstrumentLFOs(i)
			}
			if note, ok := c.bridge.DrainNoteOff(i, step); ok {
				sl.NoteOff(note)
			}
		}
	}
}

// NoteOn implements control.NotePort: a live pad press routes through the
// Trigger Bridge exactly like a sequencer step, using cell as the bridge's
// per-slot cell index (the grid's pad index, reusing the bridge's 16-wide
// dimension per §4.11).
func (c *Core) NoteOn(slot, cell int, n engine.Note) {
	c.bridge.FireStep(slot, cell, n.Number, n.Velocity)
}

// NoteOff implements control.NotePort, scheduling a bridge note-off for the
// same cell a NoteOn was fired on.
func (c *Core) NoteOff(slot, cell int, note int) {
	c.bridge.ScheduleNoteOff(slot, cell)
}

// AllNotesOff implements control.NotePort, requesting the §5 allNotesOff
// cancellation on slot at the next block boundary.
func (c *Core) AllNotesOff(slot int) {
	if slot < 0 || slot >= len(c.allNotesOffPending) {
		return
	}
	c.allNotesOffPending[slot].Store(true)
}

// SetEngineType implements control.NotePort: it prepares a new engine
// off-thread (this call's goroutine) and publishes it for the audio thread
// to swap in at the next block boundary, per §4.8/§5.
func (c *Core) SetEngineType(slot int, name string) {
	if slot < 0 || slot >= len(c.slots) {
		return
	}
	eng, err := engine.New(name, engine.MaxVoicesPerSlot)
	if err != nil {
		c.log.Warn("engine type request failed", "slot", slot, "name", name, "err", err)
		return
	}
	if err := eng.Initialize(c.cfg.SampleRate); err != nil {
		c.log.Warn("engine initialize failed", "slot", slot, "name", name, "err", err)
		return
	}
	c.pendingSwap[slot].Store(&swapRequest{eng: eng, crossfadeMs: DefaultCrossfadeMs})
}

// Sequencer exposes the underlying sequencer for callers (e.g. cmd
// diagnostics) that need read access beyond the control plane's surface.
func (c *Core) Sequencer() *sequencer.Sequencer { return c.seq }

// UnsupportedParamWrites reports the router's §7 diagnostics counter.
func (c *Core) UnsupportedParamWrites() uint64 { return c.router.UnsupportedCount() }

// GridParseErrors and SerialParseErrors report the control plane's §7
// diagnostics counters for malformed incoming messages.
func (c *Core) GridParseErrors() uint64 { return c.grid.ParseErrors() }

func (c *Core) SerialParseErrors() uint64 {
	if c.serial == nil {
		return 0
	}
	return c.serial.ParseErrors()
}
