// Package control implements the Control Plane (§4.12): the OSC grid
// transport, the serial encoder transport, and the shared atomics-backed
// state those two front ends and the terminal collaborate through. Per §5,
// control-plane threads are write-only into parameter targets and
// high-level state through atomics or a single-writer discipline per field;
// neither front end ever touches engine or post-chain state directly, only
// the Parameter Router, the Sequencer, and the Trigger Bridge.
package control

import "sync/atomic"

// ControlState is the shared latch/mode state read and written across the
// control plane's threads. Each field has exactly one writer domain:
//
//   - Write, EngineHold: written only by GridController's function row
//     handler. Accent: written only by GridController's key handler (the
//     (4,1) key).
//   - EditMode, EncoderLatch[n]: written only by SerialController's press
//     handling.
//   - Mute[n], Solo[n]: written through SetMute/SetSolo/ToggleMute/
//     ToggleSolo below, each a single atomic store. ActiveSlot is an
//     exported atomic with no setter; neither front end writes it.
//
// The audio callback never reads ControlState; it exists purely to
// coordinate the two input surfaces and the diagnostics display.
type ControlState struct {
	Write      atomic.Bool
	EngineHold atomic.Bool
	Accent     atomic.Bool
	EditMode   atomic.Bool

	ActiveSlot atomic.Int32
	MenuIndex  atomic.Int32 // index into the menu-navigable parameter list

	// EncoderLatch holds, per physical encoder (0..2; encoder 3 is the
	// mode-toggle encoder and is never latchable), the ParamID latched to
	// it, or -1 if unlatched (encoder follows MenuIndex instead).
	EncoderLatch [3]atomic.Int32

	slotCount int
	mute      []atomic.Bool
	solo      []atomic.Bool
}

// NewControlState creates a ControlState sized for slotCount slots.
func NewControlState(slotCount int) *ControlState {
	s := &ControlState{
		slotCount: slotCount,
		mute:      make([]atomic.Bool, slotCount),
		solo:      make([]atomic.Bool, slotCount),
	}
	for i := range s.EncoderLatch {
		s.EncoderLatch[i].Store(-1)
	}
	return s
}

func (s *ControlState) SetMute(slot int, m bool) {
	if slot < 0 || slot >= s.slotCount {
		return
	}
	s.mute[slot].Store(m)
}

func (s *ControlState) Mute(slot int) bool {
	if slot < 0 || slot >= s.slotCount {
		return false
	}
	return s.mute[slot].Load()
}

func (s *ControlState) SetSolo(slot int, v bool) {
	if slot < 0 || slot >= s.slotCount {
		return
	}
	s.solo[slot].Store(v)
}

func (s *ControlState) Solo(slot int) bool {
	if slot < 0 || slot >= s.slotCount {
		return false
	}
	return s.solo[slot].Load()
}

// ToggleMute flips and returns slot's mute latch.
func (s *ControlState) ToggleMute(slot int) bool {
	if slot < 0 || slot >= s.slotCount {
		return false
	}
	v := !s.mute[slot].Load()
	s.mute[slot].Store(v)
	return v
}

// ToggleSolo flips and returns slot's solo latch.
func (s *ControlState) ToggleSolo(slot int) bool {
	if slot < 0 || slot >= s.slotCount {
		return false
	}
	v := !s.solo[slot].Load()
	s.solo[slot].Store(v)
	return v
}
