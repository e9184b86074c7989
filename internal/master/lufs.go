package master

import "math"

const (
	defaultTargetLUFS  = -23.0
	alternateTargetLUFS = -18.0
	defaultWindowSec   = 3.0
	maxBoostDB         = 12.0
	maxCutDB           = 12.0
	gainSmoothMs       = 200.0
)

// LUFSNormalizer measures K-weighted integrated loudness over a configurable
// window and applies a smoothed make-up gain toward a target LUFS value,
// grounded on original_source's LUFSNormalizer.h.
type LUFSNormalizer struct {
	sampleRate float64
	kL, kR     *kWeighting

	windowSamples int
	sumSquares    float64
	windowIndex   int
	integrated    float64 // running integrated LUFS estimate

	targetLUFS float64
	maxBoostDB float64
	maxCutDB   float64

	currentGain float64 // linear, smoothed
	gainCoeff   float64
}

// NewLUFSNormalizer creates a normalizer at the default -23 LUFS target
// with a 3-second integration window.
func NewLUFSNormalizer(sampleRate float64) *LUFSNormalizer {
	n := &LUFSNormalizer{
		sampleRate:  sampleRate,
		kL:          newKWeighting(sampleRate),
		kR:          newKWeighting(sampleRate),
		targetLUFS:  defaultTargetLUFS,
		maxBoostDB:  maxBoostDB,
		maxCutDB:    maxCutDB,
		currentGain: 1,
	}
	n.SetWindow(defaultWindowSec)
	n.gainCoeff = math.Exp(-1 / (gainSmoothMs * 0.001 * sampleRate))
	return n
}

// SetWindow resizes the integration window (seconds).
func (n *LUFSNormalizer) SetWindow(sec float64) {
	if sec <= 0 {
		sec = defaultWindowSec
	}
	n.windowSamples = int(sec * n.sampleRate)
	if n.windowSamples < 1 {
		n.windowSamples = 1
	}
}

// SetTarget sets the target integrated loudness in LUFS (e.g. -23 or the
// user-facing -18 alternative).
func (n *LUFSNormalizer) SetTarget(lufs float64) { n.targetLUFS = lufs }

// SetMaxAdjustment bounds the applied gain to [-maxCutDB, +maxBoostDB].
func (n *LUFSNormalizer) SetMaxAdjustment(maxBoostDB, maxCutDB float64) {
	n.maxBoostDB = maxBoostDB
	n.maxCutDB = maxCutDB
}

// AppliedGainDB returns the current smoothed gain in dB, for diagnostics.
func (n *LUFSNormalizer) AppliedGainDB() float64 {
	if n.currentGain <= 0 {
		return -120
	}
	return 20 * math.Log10(n.currentGain)
}

// ProcessSample measures one stereo sample's K-weighted energy, updates the
// rolling integrated-loudness estimate, and returns the gain-adjusted
// stereo pair.
func (n *LUFSNormalizer) ProcessSample(inL, inR float64) (outL, outR float64) {
	kl := n.kL.process(inL)
	kr := n.kR.process(inR)
	energy := kl*kl + kr*kr

	// Simple running-mean block-integration approximation of BS.1770's
	// gated loudness measurement (gating is out of scope for a per-sample
	// realtime normalizer): a single exponential window over windowSamples.
	alpha := 1.0 / float64(n.windowSamples)
	n.sumSquares += (energy - n.sumSquares) * alpha

	if n.sumSquares > 1e-12 {
		n.integrated = -0.691 + 10*math.Log10(n.sumSquares)
	} else {
		n.integrated = -70
	}

	targetGainDB := n.targetLUFS - n.integrated
	targetGainDB = clamp(targetGainDB, -n.maxCutDB, n.maxBoostDB)
	targetGain := math.Pow(10, targetGainDB/20)

	n.currentGain = n.gainCoeff*n.currentGain + (1-n.gainCoeff)*targetGain

	outL = inL * n.currentGain
	outR = inR * n.currentGain
	return
}

// IntegratedLUFS returns the current running loudness estimate.
func (n *LUFSNormalizer) IntegratedLUFS() float64 { return n.integrated }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
