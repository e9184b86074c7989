package control

import "github.com/gridsynth/ether-core/internal/engine"

// NotePort is the narrow surface the control plane uses to reach live
// engine state, implemented by core.Core. Per §4.12's contract, the control
// plane never touches engine or post-chain state beyond this, the Router,
// the Sequencer, and the Bridge: NoteOn/NoteOff route through the Trigger
// Bridge exactly like a sequencer step, using cell as the (slot, cell)
// bridge index — the grid's pad index doubles as the bridge cell the same
// way it doubles as a drum pad index, per §4.11's generalized 16-wide
// dimension.
type NotePort interface {
	NoteOn(slot, cell int, n engine.Note)
	NoteOff(slot, cell int, note int)
	AllNotesOff(slot int)
	// SetEngineType requests an engine swap on slot, prepared off-thread
	// and published via the crossfader per §4.8. name is one of the
	// registered engine variant names.
	SetEngineType(slot int, name string)
}

// ParamPort is the narrow surface for resolving a parameter write, backed
// by router.Router.
type ParamPort interface {
	SetParameter(slot int, id engine.ParamID, value float64)
}

// menuParams is the fixed, ordered list of parameters menu navigation and
// encoder latching cycle through, per §4.12's encoder contract. Order
// matters only for navigation ergonomics.
var menuParams = []engine.ParamID{
	engine.ParamHarmonics,
	engine.ParamTimbre,
	engine.ParamMorph,
	engine.ParamCutoff,
	engine.ParamResonance,
	engine.ParamHPF,
	engine.ParamAmplitude,
	engine.ParamClip,
	engine.ParamVolume,
	engine.ParamPan,
	engine.ParamAttack,
	engine.ParamDecay,
	engine.ParamSustain,
	engine.ParamRelease,
	engine.ParamAccent,
	engine.ParamGlide,
}
