package engine

import (
	"github.com/gridsynth/ether-core/internal/antclick"
	"github.com/gridsynth/ether-core/internal/dsp"
	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/osc"
	"github.com/gridsynth/ether-core/internal/voicepool"
)

type fm4Voice struct {
	active   bool
	note     int
	velocity float64
	baseFreq float64
	ops      [4]*osc.Operator
	amp      *envelope.Envelope
	allocID  uint64
	oversamp *dsp.Oversampler
}

// FM4Op is the fm-4op engine: four phase-modulation operators connected by
// a selectable algorithm, generalizing the teacher FM engine's
// algorithm/feedback/operator model to the macro-routed parameter set, with
// operator output run through the oversampler to push FM aliasing above the
// audible band and then through the anti-click controller's per-sample
// stage. Nothing in this engine starts an anti-click ramp, so an algorithm
// change takes effect on the next sample without a ramp.
type FM4Op struct {
	sampleRate   float64
	sampleRateOK bool
	voices       []*fm4Voice
	alloc        *voicepool.Allocator
	click        *antclick.Controller
	infoScratch  []voicepool.VoiceInfo // reused by NoteOn; sized by SetVoiceCount

	algorithm  int // 0-2: cascade, two parallel 2-op stacks, op3+op2 into op1->op0
	modIndex   float64
	feedback   float64
	ratios     [4]float64
	attack, decay, sustain, release float64
	cpu float64
}

// NewFM4Op creates a 4-operator FM engine with the given polyphony.
func NewFM4Op(voiceCount int) *FM4Op {
	f := &FM4Op{
		alloc:    voicepool.New(),
		modIndex: 2,
		ratios:   [4]float64{1, 1, 2, 4},
		attack:   0.002, decay: 0.3, sustain: 0.5, release: 0.4,
	}
	f.SetVoiceCount(voiceCount)
	return f
}

func (f *FM4Op) Initialize(sampleRate float64) error {
	f.sampleRate = sampleRate
	f.sampleRateOK = sampleRate > 0
	f.click = antclick.New(sampleRate, len(f.voices), antclick.DefaultConfig())
	for _, v := range f.voices {
		// Operators run at 2x sampleRate so the oversampler's per-tap
		// callback advances phase at the correct oversampled rate.
		for i := range v.ops {
			v.ops[i] = osc.NewOperator(sampleRate * 2)
		}
		v.amp = envelope.New(sampleRate)
		v.oversamp = dsp.NewOversampler(2)
	}
	return nil
}

func (f *FM4Op) SetVoiceCount(n int) {
	n = clampInt(n, 1, MaxVoicesPerSlot)
	for len(f.voices) < n {
		v := &fm4Voice{amp: envelope.New(f.sampleRate), oversamp: dsp.NewOversampler(2)}
		for i := range v.ops {
			v.ops[i] = osc.NewOperator(f.sampleRate * 2)
		}
		f.voices = append(f.voices, v)
	}
	if len(f.voices) > n {
		f.voices = f.voices[:n]
	}
	if f.sampleRateOK {
		f.click = antclick.New(f.sampleRate, len(f.voices), antclick.DefaultConfig())
	}
	f.infoScratch = f.infoScratch[:0]
	for range f.voices {
		f.infoScratch = append(f.infoScratch, voicepool.VoiceInfo{})
	}
}

func (f *FM4Op) NoteOn(n Note) {
	if len(f.voices) == 0 {
		return
	}
	for i, v := range f.voices {
		f.infoScratch[i] = voicepool.VoiceInfo{Active: v.active, Releasing: v.amp.CurrentStage() == envelope.StageRelease, OutputLevel: v.amp.Level(), AllocationID: v.allocID}
	}
	slot, _ := f.alloc.Allocate(f.infoScratch)
	v := f.voices[slot]
	v.active = true
	v.note = n.Number
	v.velocity = n.Velocity
	v.baseFreq = noteToFreq(n.Number)
	v.allocID = f.alloc.NextAllocationID()
	for i, op := range v.ops {
		op.SetRatio(f.ratios[i])
		op.SetLevel(1)
		op.SetEnvelope(f.attack, f.decay, f.sustain, f.release)
		if i == 0 {
			op.SetFeedback(f.feedback)
		}
		op.NoteOn(true)
	}
	v.amp.SetADSR(f.attack, f.decay, f.sustain, f.release)
	v.amp.NoteOn(n.Velocity)
}

func (f *FM4Op) NoteOff(note int) {
	for _, v := range f.voices {
		if v.active && v.note == note {
			v.amp.NoteOff()
			for _, op := range v.ops {
				op.NoteOff()
			}
		}
	}
}

func (f *FM4Op) AllNotesOff() {
	for _, v := range f.voices {
		v.amp.NoteOff()
		for _, op := range v.ops {
			op.NoteOff()
		}
	}
}

func (f *FM4Op) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !f.sampleRateOK {
		return
	}
	active := 0
	for vi, v := range f.voices {
		if v.active && !v.amp.Active() {
			v.active = false
		}
		if !v.active {
			continue
		}
		active++
		for i := range out {
			sample := v.oversamp.Process(0, func(float64) float64 {
				return f.renderAlgorithm(v)
			})
			sample = f.click.ProcessSample(vi, sample)
			out[i] += sample * v.amp.Process() * (0.3 + 0.7*v.velocity)
		}
	}
	f.cpu = float64(active) / float64(maxInt(len(f.voices), 1))
}

func (f *FM4Op) renderAlgorithm(v *fm4Voice) float64 {
	o0, o1, o2, o3 := v.ops[0], v.ops[1], v.ops[2], v.ops[3]
	idx := f.modIndex
	switch f.algorithm {
	case 1: // two parallel 2-op stacks, summed
		_, m1 := o3.Process(v.baseFreq, 0)
		r0, _ := o2.Process(v.baseFreq, m1*idx)
		_, m2 := o1.Process(v.baseFreq, 0)
		r1, _ := o0.Process(v.baseFreq, m2*idx)
		return (r0 + r1) * 0.5
	case 2: // op3+op2 both modulate op1->op0
		_, m3 := o3.Process(v.baseFreq, 0)
		_, m2 := o2.Process(v.baseFreq, 0)
		r1, _ := o1.Process(v.baseFreq, (m3+m2)*idx)
		r0, _ := o0.Process(v.baseFreq, r1*idx)
		return r0
	default: // cascade: op3->op2->op1->op0
		_, m3 := o3.Process(v.baseFreq, 0)
		_, m2 := o2.Process(v.baseFreq, m3*idx)
		_, m1 := o1.Process(v.baseFreq, m2*idx)
		r0, _ := o0.Process(v.baseFreq, m1*idx)
		return r0
	}
}

func (f *FM4Op) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamHarmonics:
		f.modIndex = value * 8
	case ParamTimbre:
		f.ratios[2] = 1 + value*7
		f.ratios[3] = 1 + value*15
	case ParamMorph:
		f.algorithm = int(value * 2.999)
	case ParamAccent:
		f.feedback = value
	case ParamAttack:
		f.attack = 0.001 + value*2
	case ParamDecay:
		f.decay = 0.001 + value*2
	case ParamSustain:
		f.sustain = value
	case ParamRelease:
		f.release = 0.001 + value*5
	}
}

func (f *FM4Op) HasParameter(id ParamID) bool {
	switch id {
	case ParamHarmonics, ParamTimbre, ParamMorph, ParamAccent,
		ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (f *FM4Op) GetParameter(id ParamID) float64 {
	switch id {
	case ParamHarmonics:
		return f.modIndex / 8
	case ParamAccent:
		return f.feedback
	case ParamAttack:
		return f.attack
	case ParamDecay:
		return f.decay
	case ParamSustain:
		return f.sustain
	case ParamRelease:
		return f.release
	}
	return 0
}

func (f *FM4Op) ActiveVoices() int {
	n := 0
	for _, v := range f.voices {
		if v.active {
			n++
		}
	}
	return n
}

func (f *FM4Op) CPUEstimate() float64 { return f.cpu }
