// Package router implements the Parameter Router: the sole arbiter between
// an engine and its post-chain for where a parameter write lands, plus the
// LFO assignment fabric that modulates the resolved value (§4.6).
//
// Per the design note in §9, the Router holds references to engines and
// post-chains; neither an engine nor a post-chain knows about the Router,
// which breaks the engine<->post-chain<->router cycle.
package router

import (
	"github.com/gridsynth/ether-core/internal/engine"
	"github.com/gridsynth/ether-core/internal/lfo"
	"github.com/gridsynth/ether-core/internal/postchain"
)

// Destination reports where a parameter write was routed, for diagnostics.
type Destination int

const (
	DestEngine Destination = iota
	DestPostChain
	DestUnsupported
)

// postChainParams is the fixed set of parameter ids the post-chain can
// consume when an engine does not declare native support, per §4.6 step 2.
// ParamAccent and ParamGlide are deliberately absent: §4.2's eight fixed
// post-chain stages have no accent or glide stage to fall back to (only
// slide-accent-bass-style engines declare native support for them), so a
// write on an engine that doesn't consume them correctly resolves to
// DestUnsupported rather than a disguised post-chain no-op.
var postChainParams = map[engine.ParamID]bool{
	engine.ParamCutoff:    true,
	engine.ParamResonance: true,
	engine.ParamHPF:       true,
	engine.ParamAmplitude: true,
	engine.ParamClip:      true,
	engine.ParamVolume:    true,
	engine.ParamPan:       true,
	engine.ParamAttack:    true,
	engine.ParamDecay:     true,
	engine.ParamSustain:   true,
	engine.ParamRelease:   true,
}

// enumeratedParams are quantized after modulation per §4.6's last rule.
// None of the core parameter ids are enumerated by default; engines that
// need quantized macro behavior (e.g. chord's voicing select) quantize
// internally in SetParameter instead, since the router only sees the
// ids declared in engine.ParamID.
var enumeratedParams = map[engine.ParamID]int{}

// assignment is one (lfoIndex, depth) pair bound to a parameter.
type assignment struct {
	lfoIndex int
	depth    float64
}

// slotRouting holds one slot's engine/post-chain references and its
// per-parameter LFO assignment masks.
type slotRouting struct {
	eng        engine.Engine
	chain      *postchain.Chain
	assignMask map[engine.ParamID][]assignment
	base       map[engine.ParamID]float64 // last smoother target set, for diagnostics/UI readback
}

// Router resolves parameter writes to an engine or a post-chain and applies
// LFO modulation on top of the resolved base value.
type Router struct {
	lfos  *lfo.Bank
	slots []*slotRouting

	unsupportedCount uint64 // diagnostics counter, §7
}

// New creates a Router over nSlots slots sharing the given LFO bank.
func New(nSlots int, lfos *lfo.Bank) *Router {
	r := &Router{lfos: lfos, slots: make([]*slotRouting, nSlots)}
	for i := range r.slots {
		r.slots[i] = &slotRouting{
			assignMask: make(map[engine.ParamID][]assignment),
			base:       make(map[engine.ParamID]float64),
		}
	}
	return r
}

// Bind attaches a slot's engine and post-chain. Called once at slot
// initialization or after an engine swap completes.
func (r *Router) Bind(slot int, eng engine.Engine, chain *postchain.Chain) {
	if slot < 0 || slot >= len(r.slots) {
		return
	}
	r.slots[slot].eng = eng
	r.slots[slot].chain = chain
	if chain != nil {
		chain.SetNativeFilter(eng != nil && (eng.HasParameter(engine.ParamCutoff) || eng.HasParameter(engine.ParamTimbre)))
	}
}

// AssignLFO assigns lfoIndex to (slot, paramId) with the given depth,
// implementing assignLFOToParam. A parameter may carry multiple LFO
// assignments simultaneously; their contributions sum before clamping.
func (r *Router) AssignLFO(slot int, lfoIndex int, paramID engine.ParamID, depth float64) {
	s := r.slot(slot)
	if s == nil || lfoIndex < 0 || lfoIndex > 7 {
		return
	}
	list := s.assignMask[paramID]
	for i, a := range list {
		if a.lfoIndex == lfoIndex {
			list[i].depth = depth
			s.assignMask[paramID] = list
			return
		}
	}
	s.assignMask[paramID] = append(list, assignment{lfoIndex: lfoIndex, depth: depth})
}

// RemoveLFOAssignment implements removeLFOAssignment.
func (r *Router) RemoveLFOAssignment(slot int, lfoIndex int, paramID engine.ParamID) {
	s := r.slot(slot)
	if s == nil {
		return
	}
	list := s.assignMask[paramID]
	for i, a := range list {
		if a.lfoIndex == lfoIndex {
			s.assignMask[paramID] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// ParameterLFOInfo implements getParameterLFOInfo: returns the assignment
// mask (bit i set if LFO i is assigned) and the current summed modulation
// value for (slot, paramId).
func (r *Router) ParameterLFOInfo(slot int, paramID engine.ParamID) (mask uint8, modValue float64) {
	s := r.slot(slot)
	if s == nil {
		return 0, 0
	}
	for _, a := range s.assignMask[paramID] {
		mask |= 1 << uint(a.lfoIndex)
		modValue += r.lfos.Value(a.lfoIndex) * a.depth
	}
	return mask, modValue
}

// TriggerInstrumentLFOs resets the phase of every key-synced/one-shot LFO
// assigned to any parameter on slot, implementing triggerInstrumentLFOs.
// Called by core.Core on each note-on it dispatches to the slot.
func (r *Router) TriggerInstrumentLFOs(slot int) {
	s := r.slot(slot)
	if s == nil {
		return
	}
	var mask uint8
	for _, list := range s.assignMask {
		for _, a := range list {
			mask |= 1 << uint(a.lfoIndex)
		}
	}
	r.lfos.TriggerMask(mask)
}

// SetParameter resolves and applies a parameter write on (slot, paramId)
// per the three-step rule in §4.6: engine-native first, then the post-chain
// set, otherwise unsupported (diagnostics only, no-op).
func (r *Router) SetParameter(slot int, paramID engine.ParamID, value float64) Destination {
	s := r.slot(slot)
	if s == nil {
		return DestUnsupported
	}
	value = clamp01(value)
	s.base[paramID] = value

	if s.eng != nil && s.eng.HasParameter(paramID) {
		s.eng.SetParameter(paramID, r.modulated(slot, paramID, value))
		return DestEngine
	}
	if postChainParams[paramID] && s.chain != nil {
		r.applyPostChain(s.chain, paramID, r.modulated(slot, paramID, value))
		return DestPostChain
	}
	r.unsupportedCount++
	return DestUnsupported
}

// modulated computes effective = clamp(base + sum(lfo*depth), 0, 1) and
// quantizes enumerated parameters after clamping, per §4.6's last rule.
func (r *Router) modulated(slot int, paramID engine.ParamID, base float64) float64 {
	_, mod := r.ParameterLFOInfo(slot, paramID)
	effective := clamp01(base + mod)
	if n, ok := enumeratedParams[paramID]; ok {
		effective = quantize(effective, n)
	}
	return effective
}

// ProcessModulation is called once per block (or sample) from the audio
// thread after lfo.Bank.Process, re-applying every assigned parameter's
// modulated value so LFO motion reaches engine/post-chain parameters
// without requiring a fresh SetParameter call from the control plane.
func (r *Router) ProcessModulation() {
	for slot, s := range r.slots {
		for paramID, list := range s.assignMask {
			if len(list) == 0 {
				continue
			}
			base, ok := s.base[paramID]
			if !ok {
				continue
			}
			effective := r.modulated(slot, paramID, base)
			if s.eng != nil && s.eng.HasParameter(paramID) {
				s.eng.SetParameter(paramID, effective)
			} else if postChainParams[paramID] && s.chain != nil {
				r.applyPostChain(s.chain, paramID, effective)
			}
		}
	}
}

func (r *Router) applyPostChain(chain *postchain.Chain, paramID engine.ParamID, value float64) {
	switch paramID {
	case engine.ParamCutoff:
		chain.SetLPF(value)
	case engine.ParamResonance:
		chain.SetResonance(value)
	case engine.ParamHPF:
		chain.SetHPF(value)
	case engine.ParamAmplitude:
		chain.SetAmplitude(value)
	case engine.ParamClip:
		chain.SetClip(value)
	case engine.ParamVolume:
		chain.SetVolume(value)
	case engine.ParamPan:
		chain.SetPan(value*2 - 1)
	case engine.ParamAttack:
		chain.SetAttack(value)
	case engine.ParamDecay:
		chain.SetDecay(value)
	case engine.ParamSustain:
		chain.SetSustain(value)
	case engine.ParamRelease:
		chain.SetRelease(value)
	}
}

// UnsupportedCount reports how many SetParameter calls resolved to
// DestUnsupported, surfaced by the control plane's diagnostics (§7).
func (r *Router) UnsupportedCount() uint64 { return r.unsupportedCount }

func (r *Router) slot(i int) *slotRouting {
	if i < 0 || i >= len(r.slots) {
		return nil
	}
	return r.slots[i]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func quantize(x float64, n int) float64 {
	if n <= 1 {
		return 0
	}
	bucket := int(x * float64(n))
	if bucket >= n {
		bucket = n - 1
	}
	return float64(bucket) / float64(n-1)
}
