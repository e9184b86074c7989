package master

import "github.com/gridsynth/ether-core/internal/dsp"

// Chain runs the Master Chain's three post-sum stages in the fixed order
// from §4.9: mono-low crossover, LUFS normalization, peak limiting. The sum
// of slot outputs and FX bus wet returns is the caller's responsibility
// (the audio callback / core package owns that summation).
type Chain struct {
	MonoLow *MonoLow
	LUFS    *LUFSNormalizer
	Limiter *Limiter

	dcL, dcR *dsp.DCBlocker
}

// NewChain creates a master chain at the given sample rate with spec
// defaults: 120Hz mono-low crossover, -23 LUFS target over a 3s window,
// unity-ceiling soft-knee limiter.
func NewChain(sampleRate float64) *Chain {
	return &Chain{
		MonoLow: NewMonoLow(sampleRate),
		LUFS:    NewLUFSNormalizer(sampleRate),
		Limiter: NewLimiter(),
		dcL:     dsp.NewDCBlocker(0.995),
		dcR:     dsp.NewDCBlocker(0.995),
	}
}

// ProcessSample runs one summed stereo sample through the full chain.
func (c *Chain) ProcessSample(inL, inR float64) (outL, outR float64) {
	inL, inR = dsp.Sanitize(inL), dsp.Sanitize(inR)
	l, r := c.MonoLow.ProcessSample(inL, inR)
	l, r = c.LUFS.ProcessSample(l, r)
	l, r = c.dcL.Process(l), c.dcR.Process(r)
	outL = c.Limiter.ProcessSample(l)
	outR = c.Limiter.ProcessSample(r)
	return
}

// ProcessBlock runs a full block of interleaved stereo samples in place.
func (c *Chain) ProcessBlock(frames []float64) {
	for i := 0; i+1 < len(frames); i += 2 {
		frames[i], frames[i+1] = c.ProcessSample(frames[i], frames[i+1])
	}
}
