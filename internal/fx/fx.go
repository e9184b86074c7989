package fx

// Buses owns the two Global FX Buses and mixes per-slot sends into them,
// per §4.7: each slot contributes postChain.output*sendLevel[bus] to the
// bus input; buses run once per sample; wet returns sum into master with a
// bus-level wet gain.
type Buses struct {
	Reverb *Reverb
	Delay  *Delay

	reverbGain float64
	delayGain  float64

	accumL, accumR [2]float64 // [bus] accumulated send input for this sample
}

// NewBuses creates both global buses at the given sample rate.
func NewBuses(sampleRate float64) *Buses {
	return &Buses{
		Reverb:     NewReverb(sampleRate),
		Delay:      NewDelay(sampleRate),
		reverbGain: 1,
		delayGain:  1,
	}
}

// SetBusGain sets the wet-return gain for bus index 0 (reverb) or 1 (delay).
func (b *Buses) SetBusGain(bus int, gain float64) {
	switch bus {
	case 0:
		b.reverbGain = gain
	case 1:
		b.delayGain = gain
	}
}

// AccumulateSend adds a slot's contribution (post-chain stereo output
// scaled by its send level) into bus index's pending input for this sample.
func (b *Buses) AccumulateSend(bus int, l, r float64) {
	if bus < 0 || bus > 1 {
		return
	}
	b.accumL[bus] += l
	b.accumR[bus] += r
}

// ProcessSample runs both buses on their accumulated input for this sample,
// returns the combined wet return, and resets the accumulators for the next
// sample.
func (b *Buses) ProcessSample() (wetL, wetR float64) {
	rL, rR := b.Reverb.ProcessSample(b.accumL[0], b.accumR[0])
	dL, dR := b.Delay.ProcessSample(b.accumL[1], b.accumR[1])
	b.accumL[0], b.accumR[0] = 0, 0
	b.accumL[1], b.accumR[1] = 0, 0
	return rL*b.reverbGain + dL*b.delayGain, rR*b.reverbGain + dR*b.delayGain
}
