package engine

import "math"

const granularMaxGrains = 16

type grain struct {
	active     bool
	posSamples float64
	step       float64
	ageSamples float64
	lengthSamples float64
}

// Granular is the granular engine: a grain scheduler reading a caller-
// supplied in-memory buffer with windowed overlap-add, jittering the read
// position per grain (every grain plays at the note's pitch ratio) (§1 non-goal excludes file-based sample loading;
// the buffer is supplied programmatically, e.g. by the sampler-kit or a
// captured wavetable cycle).
type Granular struct {
	sampleRate   float64
	sampleRateOK bool
	buffer       []float64

	grains   [granularMaxGrains]grain
	spawnAcc float64

	active   bool
	velocity float64
	note     int

	grainLengthMs float64 // Timbre
	density       float64 // Harmonics: grains per second, 1-60
	positionJitter float64 // Morph
	pitchRatio    float64
	rngState      uint32
	cpu float64
}

// NewGranular creates a granular engine over the given in-memory buffer
// (mono samples at the engine's sample rate).
func NewGranular(buffer []float64) *Granular {
	return &Granular{
		buffer:        buffer,
		grainLengthMs: 80,
		density:       20,
		pitchRatio:    1,
		rngState:      0x2545F491,
	}
}

// SetBuffer replaces the in-memory sample source.
func (g *Granular) SetBuffer(buffer []float64) { g.buffer = buffer }

func (g *Granular) Initialize(sampleRate float64) error {
	g.sampleRate = sampleRate
	g.sampleRateOK = sampleRate > 0
	return nil
}

func (g *Granular) SetVoiceCount(int) {} // grain count is fixed; density governs overlap

func (g *Granular) NoteOn(n Note) {
	g.active = true
	g.note = n.Number
	g.velocity = n.Velocity
	g.pitchRatio = math.Exp2(float64(n.Number-60) / 12)
}

func (g *Granular) NoteOff(note int) {
	if note == g.note {
		g.active = false
	}
}

func (g *Granular) AllNotesOff() { g.active = false }

func (g *Granular) rand01() float64 {
	g.rngState ^= g.rngState << 13
	g.rngState ^= g.rngState >> 17
	g.rngState ^= g.rngState << 5
	return float64(g.rngState) / float64(^uint32(0))
}

func (g *Granular) spawnGrain() {
	if len(g.buffer) == 0 {
		return
	}
	for i := range g.grains {
		if g.grains[i].active {
			continue
		}
		jitter := (g.rand01()*2 - 1) * g.positionJitter
		pos := jitter * float64(len(g.buffer))
		if pos < 0 {
			pos += float64(len(g.buffer))
		}
		g.grains[i] = grain{
			active:        true,
			posSamples:    pos,
			step:          g.pitchRatio,
			lengthSamples: g.grainLengthMs * g.sampleRate / 1000,
		}
		return
	}
}

func (g *Granular) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !g.sampleRateOK || len(g.buffer) == 0 {
		return
	}
	spawnInterval := g.sampleRate / math.Max(g.density, 0.1)
	for i := range out {
		if g.active {
			g.spawnAcc++
			if g.spawnAcc >= spawnInterval {
				g.spawnAcc = 0
				g.spawnGrain()
			}
		}
		var sum float64
		activeCount := 0
		for gi := range g.grains {
			gr := &g.grains[gi]
			if !gr.active {
				continue
			}
			activeCount++
			idx := int(gr.posSamples) % len(g.buffer)
			window := hannWindow(gr.ageSamples / gr.lengthSamples)
			sum += g.buffer[idx] * window
			gr.posSamples += gr.step
			gr.ageSamples++
			if gr.ageSamples >= gr.lengthSamples {
				gr.active = false
			}
		}
		out[i] = sum * (0.3 + 0.7*g.velocity)
		if activeCount > 0 {
			g.cpu = 1
		}
	}
	if !g.active && g.cpu > 0 {
		stillRinging := false
		for _, gr := range g.grains {
			if gr.active {
				stillRinging = true
				break
			}
		}
		if !stillRinging {
			g.cpu = 0
		}
	}
}

func hannWindow(phase float64) float64 {
	if phase < 0 {
		phase = 0
	}
	if phase > 1 {
		phase = 1
	}
	return 0.5 - 0.5*math.Cos(2*math.Pi*phase)
}

func (g *Granular) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamTimbre:
		g.grainLengthMs = 10 + value*400
	case ParamHarmonics:
		g.density = 1 + value*59
	case ParamMorph:
		g.positionJitter = value
	}
}

func (g *Granular) HasParameter(id ParamID) bool {
	switch id {
	case ParamTimbre, ParamHarmonics, ParamMorph:
		return true
	}
	return false
}

func (g *Granular) GetParameter(id ParamID) float64 {
	switch id {
	case ParamTimbre:
		return g.grainLengthMs
	case ParamHarmonics:
		return g.density
	case ParamMorph:
		return g.positionJitter
	}
	return 0
}

func (g *Granular) ActiveVoices() int {
	n := 0
	for _, gr := range g.grains {
		if gr.active {
			n++
		}
	}
	return n
}

func (g *Granular) CPUEstimate() float64 { return g.cpu }
