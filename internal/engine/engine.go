// Package engine hosts the synthesis Engine interface and its 17 concrete
// variants, sharing internal/osc, internal/envelope, internal/dsp, and
// internal/voicepool for their voice machinery.
package engine

import (
	"fmt"
	"math"
)

// ParamID identifies a parameter an Engine or the post-chain may consume.
// The macro ids (Harmonics/Timbre/Morph) are the three high-level controls
// every patch exposes; engines that do not natively consume a macro let the
// post-chain apply its default mapping (§4.2).
type ParamID int

const (
	ParamHarmonics ParamID = iota // H macro: pre-gain / additive partial weighting / FM index, engine-dependent
	ParamTimbre                   // T macro: native filter cutoff or equivalent brightness control
	ParamMorph                    // M macro: engine-specific structural morph (wave shape, algorithm blend, vowel)
	ParamCutoff
	ParamResonance
	ParamHPF
	ParamAmplitude
	ParamClip
	ParamVolume
	ParamPan
	ParamAttack
	ParamDecay
	ParamSustain
	ParamRelease
	ParamAccent
	ParamGlide
	paramCount
)

// Note carries the information passed to NoteOn: MIDI-style note number,
// normalized velocity, and normalized aftertouch.
type Note struct {
	Number     int
	Velocity   float64
	Aftertouch float64
}

// Engine is the uniform capability set every synthesis variant implements,
// matching the contract in §4.3: initialize, note lifecycle, block
// rendering, parameter access, voice-count control, and load introspection.
type Engine interface {
	Initialize(sampleRate float64) error

	NoteOn(n Note)
	NoteOff(note int)
	AllNotesOff()

	// ProcessBlock fills out[i] with one rendered sample per frame. It must
	// not allocate or block.
	ProcessBlock(out []float64)

	SetParameter(id ParamID, value float64)
	HasParameter(id ParamID) bool
	GetParameter(id ParamID) float64

	SetVoiceCount(n int)
	ActiveVoices() int
	CPUEstimate() float64
}

// MaxVoicesPerSlot bounds SetVoiceCount across every variant.
const MaxVoicesPerSlot = 16

// granularDefaultBufferFrames sizes the default in-memory buffer New hands
// to a granular engine when no caller-supplied buffer exists yet (§1 non-
// goal excludes file-based sample loading, so New seeds one cycle of a
// sine rather than leaving the grain scheduler reading silence forever).
const granularDefaultBufferFrames = 4096

func defaultGranularBuffer() []float64 {
	buf := make([]float64, granularDefaultBufferFrames)
	for i := range buf {
		buf[i] = math.Sin(2 * math.Pi * float64(i) / float64(len(buf)))
	}
	return buf
}

// New constructs one of the 17 registered synthesis variants by name, per
// §4.3's Engine Interface and Variants. voiceCount seeds initial polyphony
// for the variants whose voice pool is sized at construction; variants with
// a fixed or externally-driven voice count ignore it.
func New(name string, voiceCount int) (Engine, error) {
	switch name {
	case "analog":
		return NewAnalog(voiceCount), nil
	case "chord":
		return NewChord(), nil
	case "classicfm":
		return NewClassicFM(voiceCount), nil
	case "drumkit":
		return NewDrumKit(), nil
	case "elements":
		return NewElements(voiceCount), nil
	case "fm4op":
		return NewFM4Op(voiceCount), nil
	case "formant":
		return NewFormant(voiceCount), nil
	case "granular":
		return NewGranular(defaultGranularBuffer()), nil
	case "harmonics":
		return NewHarmonics(voiceCount), nil
	case "noiseparticles":
		return NewNoiseParticles(), nil
	case "ringsmodal":
		return NewRingsModal(voiceCount), nil
	case "samplerkit":
		return NewSamplerKit(), nil
	case "serialhplp":
		return NewSerialHPLP(), nil
	case "slideaccent":
		return NewSlideAccentBass(), nil
	case "tides":
		return NewTides(voiceCount), nil
	case "waveshaper":
		return NewWaveshaper(voiceCount), nil
	case "wavetable":
		return NewWavetable(voiceCount), nil
	default:
		return nil, fmt.Errorf("engine: unknown variant %q", name)
	}
}

// VariantNames lists every registered variant name New accepts, in a fixed
// order suitable for menu display.
func VariantNames() []string {
	return []string{
		"analog", "chord", "classicfm", "drumkit", "elements", "fm4op",
		"formant", "granular", "harmonics", "noiseparticles", "ringsmodal",
		"samplerkit", "serialhplp", "slideaccent", "tides", "waveshaper",
		"wavetable",
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
