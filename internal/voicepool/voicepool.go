// Package voicepool implements the voice allocator used by the analog,
// fm-4op and wavetable engines, generalizing the first-free/quietest-steal pattern
// used by the FM and wavetable engines' stealVoice into a full three-tier
// steal policy.
package voicepool

// VoiceInfo is the allocator's view of one voice slot; engines report this
// each time allocation needs to make a steal decision.
type VoiceInfo struct {
	Active       bool
	Releasing    bool
	OutputLevel  float64 // current envelope/output magnitude, used to rank release-stage voices
	AllocationID uint64  // monotonically increasing; lower is older
}

// Allocator picks which voice slot to use for a new note and reports whether
// the pick steals a sounding voice. It does not release or fade the stolen
// voice; the engines in this module restart it at once on the new note.
type Allocator struct {
	nextAllocID uint64
}

// New creates a voice allocator.
func New() *Allocator { return &Allocator{} }

// Allocate chooses a slot index from infos using the steal policy:
//  1. first inactive voice
//  2. among voices in their release stage, the one with the lowest output level
//  3. the oldest allocated voice (lowest AllocationID)
//
// It returns the chosen index and a flag reporting whether that voice must
// be force-released (stolen while still sounding) before reuse.
func (a *Allocator) Allocate(infos []VoiceInfo) (slot int, stolen bool) {
	for i, v := range infos {
		if !v.Active {
			return i, false
		}
	}

	releasingIdx := -1
	var lowestOutput float64
	for i, v := range infos {
		if !v.Releasing {
			continue
		}
		if releasingIdx == -1 || v.OutputLevel < lowestOutput {
			releasingIdx = i
			lowestOutput = v.OutputLevel
		}
	}
	if releasingIdx != -1 {
		return releasingIdx, true
	}

	oldestIdx := 0
	oldestID := infos[0].AllocationID
	for i, v := range infos {
		if v.AllocationID < oldestID {
			oldestID = v.AllocationID
			oldestIdx = i
		}
	}
	return oldestIdx, true
}

// NextAllocationID returns a fresh, increasing allocation id to stamp onto a
// newly triggered voice.
func (a *Allocator) NextAllocationID() uint64 {
	a.nextAllocID++
	return a.nextAllocID
}
