package audio

import "fmt"

// BlockSource renders exactly one fixed-size block of stereo float64 audio
// per call, per §6's "block size 128 frames by default" contract. It is
// the seam between the realtime audio graph (core.Core) and the teacher's
// ebiten-backed output plumbing, which otherwise pulls in whatever buffer
// size the platform audio backend happens to request.
type BlockSource interface {
	ProcessBlock(outL, outR []float64)
}

// Host adapts a BlockSource into the teacher's StreamReader/Player pair
// (stream.go) by always pulling fixed blockSize-frame chunks from the
// source, regardless of how many bytes the underlying platform callback
// actually requests in a given Read.
type Host struct {
	src       BlockSource
	blockSize int

	outL, outR []float64
	pos        int

	player *Player
}

// NewHost creates a Host driving src in blockSize-frame chunks at
// sampleRate, and opens the shared ebiten audio player on top of it.
func NewHost(sampleRate, blockSize int, src BlockSource) (*Host, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("audio: invalid block size %d", blockSize)
	}
	h := &Host{
		src:       src,
		blockSize: blockSize,
		outL:      make([]float64, blockSize),
		outR:      make([]float64, blockSize),
		pos:       blockSize, // force an initial ProcessBlock on the first pull
	}
	p, err := NewPlayer(sampleRate, h)
	if err != nil {
		return nil, fmt.Errorf("audio: opening player: %w", err)
	}
	h.player = p
	return h, nil
}

// Process implements SampleSource, filling dst (interleaved stereo float32,
// len(dst)/2 frames) by repeatedly draining fixed blockSize chunks from the
// underlying BlockSource.
func (h *Host) Process(dst []float32) {
	frames := len(dst) / 2
	for i := 0; i < frames; i++ {
		if h.pos >= h.blockSize {
			h.src.ProcessBlock(h.outL, h.outR)
			h.pos = 0
		}
		dst[i*2] = float32(h.outL[h.pos])
		dst[i*2+1] = float32(h.outR[h.pos])
		h.pos++
	}
}

// Play starts the underlying player.
func (h *Host) Play() { h.player.Play() }

// Stop halts and releases the underlying player.
func (h *Host) Stop() error { return h.player.Stop() }
