// Package slot implements the Slot registry (§3): the exclusive owner of
// one Engine instance, one Post-Chain, a crossfader for click-free engine
// swaps, and the two per-bus send levels that feed the Global FX Buses.
package slot

import (
	"github.com/gridsynth/ether-core/internal/crossfade"
	"github.com/gridsynth/ether-core/internal/engine"
	"github.com/gridsynth/ether-core/internal/param"
	"github.com/gridsynth/ether-core/internal/postchain"
)

// Slot is one instrument channel: an engine, its post-chain, a crossfader
// used only while a swap is in flight, and send levels into the reverb and
// delay buses.
type Slot struct {
	sampleRate float64
	Chain      *postchain.Chain
	cf         *crossfade.Crossfader

	engineA engine.Engine
	engineB engine.Engine // non-nil only while a crossfade is in flight
	retired engine.Engine // most recently displaced engine, for cold-pool reuse

	sendReverb *param.Smoother
	sendDelay  *param.Smoother

	muted bool
	soloed bool

	rawA, rawB []float64 // scratch buffers, sized to the largest block requested

	// sendBufL/sendBufR hold this slot's per-sample contribution to each
	// global FX bus (index 0 reverb, 1 delay) for the block just rendered,
	// for the caller (core.Core) to accumulate across slots per sample
	// before running fx.Buses once per sample, per §4.7.
	sendBufL [2][]float64
	sendBufR [2][]float64

	pendingVoiceCount int
	hasPendingVoices  bool
}

// New creates an empty slot (no engine bound yet) at the given sample rate,
// with scratch buffers sized for maxBlockFrames.
func New(sampleRate float64, maxBlockFrames int) *Slot {
	cfg := param.DefaultConfig()
	s := &Slot{
		sampleRate: sampleRate,
		Chain:      postchain.New(sampleRate),
		cf:         crossfade.New(sampleRate),
		sendReverb: param.New(sampleRate, cfg),
		sendDelay:  param.New(sampleRate, cfg),
		rawA:       make([]float64, maxBlockFrames),
		rawB:       make([]float64, maxBlockFrames),
	}
	for bus := 0; bus < 2; bus++ {
		s.sendBufL[bus] = make([]float64, maxBlockFrames)
		s.sendBufR[bus] = make([]float64, maxBlockFrames)
	}
	s.sendReverb.SetValue(0)
	s.sendDelay.SetValue(0)
	return s
}

// SetEngine binds eng as the slot's initial engine with no crossfade. Used
// only at slot initialization; afterward, engine changes go through
// SwapEngine.
func (s *Slot) SetEngine(eng engine.Engine) {
	s.engineA = eng
	s.Chain.SetNativeFilter(eng != nil && eng.HasParameter(engine.ParamCutoff))
}

// Engine returns the currently (primarily) live engine: A, unless a
// crossfade has already settled on B-only and not yet been collapsed by
// SettleSwap.
func (s *Slot) Engine() engine.Engine { return s.engineA }

// SwapEngine requests a crossfade-managed swap to a newly prepared engine
// (already Initialize'd, e.g. drawn from a cold pool), per §4.8. crossfadeMs
// is clamped to [5,500]ms by the crossfader.
func (s *Slot) SwapEngine(newEngine engine.Engine, crossfadeMs float64) {
	s.engineB = newEngine
	s.cf.SetCurve(crossfade.EqualPowerSine)
	s.cf.StartAToB(crossfadeMs)
}

// ParkCrossfade manually positions an in-flight crossfade for morphing.
func (s *Slot) ParkCrossfade(position float64) { s.cf.ParkAt(position) }

// CrossfadeState reports the current crossfade state, for diagnostics/UI.
func (s *Slot) CrossfadeState() crossfade.State { return s.cf.State() }

// RetiredEngine returns the most recently displaced engine (silenced, ready
// to return to a cold pool by type), or nil if none since the last call.
func (s *Slot) RetiredEngine() engine.Engine {
	e := s.retired
	s.retired = nil
	return e
}

// SetSendLevel sets the slot's send into bus 0 (reverb) or 1 (delay).
func (s *Slot) SetSendLevel(bus int, level float64) {
	switch bus {
	case 0:
		s.sendReverb.SetTarget(clamp01(level))
	case 1:
		s.sendDelay.SetTarget(clamp01(level))
	}
}

// SetMute/SetSolo set the slot-level mute/solo latches. Nothing in this
// module reads them back; playback muting and §9's solo-wins-over-mute
// precedence are applied by the sequencer on its own per-slot flags.
func (s *Slot) SetMute(m bool)  { s.muted = m }
func (s *Slot) SetSolo(solo bool) { s.soloed = solo }
func (s *Slot) Muted() bool     { return s.muted }
func (s *Slot) Soloed() bool    { return s.soloed }

// NoteOn dispatches to the live engine(s) and the post-chain's VCA envelope.
// During a crossfade both A and B receive the note so the incoming engine
// is already sounding when it becomes fully audible.
func (s *Slot) NoteOn(n engine.Note) {
	if s.engineA != nil {
		s.engineA.NoteOn(n)
	}
	if s.engineB != nil {
		s.engineB.NoteOn(n)
	}
	s.Chain.NoteOn(n.Velocity)
}

// NoteOff releases the matching voice(s) on whichever engine(s) are live.
func (s *Slot) NoteOff(note int) {
	if s.engineA != nil {
		s.engineA.NoteOff(note)
	}
	if s.engineB != nil {
		s.engineB.NoteOff(note)
	}
	s.Chain.NoteOff()
}

// AllNotesOff releases every voice on whichever engine(s) are live.
func (s *Slot) AllNotesOff() {
	if s.engineA != nil {
		s.engineA.AllNotesOff()
	}
	if s.engineB != nil {
		s.engineB.AllNotesOff()
	}
}

// SetVoiceCount requests a polyphony change, deferred until the engine has
// zero active voices per §4.5.
func (s *Slot) SetVoiceCount(n int) {
	s.pendingVoiceCount = n
	s.hasPendingVoices = true
}

func (s *Slot) applyPendingVoiceCount() {
	if !s.hasPendingVoices || s.engineA == nil {
		return
	}
	if s.engineA.ActiveVoices() == 0 {
		s.engineA.SetVoiceCount(s.pendingVoiceCount)
		s.hasPendingVoices = false
	}
}

// ProcessBlock renders nFrames of this slot's output: one ProcessBlock call
// per live engine (per §9, a single virtual dispatch per block, not per
// sample), crossfade-mixed sample by sample if a swap is in flight, and run
// through the post-chain. It writes the slot's dry stereo output into
// outL/outR and this slot's per-sample FX bus sends into its own scratch
// buffers (read back via SendL/SendR), backed by buffers reused across
// calls (no per-block allocation). The caller is responsible for summing
// every slot's dry output and bus sends across the slot set and running
// fx.Buses once per sample, since the buses are shared state no single
// slot owns.
func (s *Slot) ProcessBlock(nFrames int, outL, outR []float64) {
	s.applyPendingVoiceCount()

	rawA := s.rawA[:nFrames]
	for i := range rawA {
		rawA[i] = 0
	}
	if s.engineA != nil {
		s.engineA.ProcessBlock(rawA)
	}

	var raw []float64
	if s.engineB != nil {
		rawB := s.rawB[:nFrames]
		for i := range rawB {
			rawB[i] = 0
		}
		s.engineB.ProcessBlock(rawB)

		mixed := s.rawA // reuse rawA as the mix destination after reading both
		for i := 0; i < nFrames; i++ {
			gA, gB := s.cf.Gains()
			mixed[i] = rawA[i]*gA + rawB[i]*gB
		}
		raw = mixed[:nFrames]

		if s.cf.State() == crossfade.AOnly {
			s.retired = s.engineB
			s.engineB = nil
		} else if s.cf.State() == crossfade.BOnly {
			s.retired = s.engineA
			s.engineA = s.engineB
			s.engineB = nil
			s.Chain.SetNativeFilter(s.engineA != nil && s.engineA.HasParameter(engine.ParamCutoff))
		}
	} else {
		raw = rawA
	}

	active := s.engineA != nil && (s.engineA.ActiveVoices() > 0 || s.Chain.Active())
	sendR := s.sendReverb
	sendD := s.sendDelay
	bufL0, bufR0 := s.sendBufL[0], s.sendBufR[0]
	bufL1, bufR1 := s.sendBufL[1], s.sendBufR[1]
	for i := 0; i < nFrames; i++ {
		l, r := s.Chain.ProcessSample(raw[i], active)
		outL[i], outR[i] = l, r
		sr := sendR.Process()
		sd := sendD.Process()
		bufL0[i], bufR0[i] = l*sr, r*sr
		bufL1[i], bufR1[i] = l*sd, r*sd
	}
}

// SendL/SendR return this slot's per-sample send contribution to bus index
// (0 reverb, 1 delay) from the most recent ProcessBlock call, trimmed to
// nFrames.
func (s *Slot) SendL(bus, nFrames int) []float64 { return s.sendBufL[bus][:nFrames] }
func (s *Slot) SendR(bus, nFrames int) []float64 { return s.sendBufR[bus][:nFrames] }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
