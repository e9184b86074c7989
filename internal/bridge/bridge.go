// Package bridge implements the Trigger Bridge (§4.11): fixed-size atomic
// arrays that carry note and step events from the sequencer/control
// goroutines into the audio callback without allocation or locks. Per §9's
// design note, this stays intentionally simple — plain atomic arrays, not a
// queue — and is extended with additional fields (velocity, preview marker)
// rather than growing into something more general.
package bridge

import "sync/atomic"

const (
	// Steps is the pattern length (§3 Pattern) and doubles as the drum pad
	// count, since both are indexed 0..15.
	Steps = 16
	// NoActiveNote marks an (slot,step) cell with no currently sounding note.
	NoActiveNote = -1
	// NoPreview marks a slot with no pending preview-suppression marker.
	NoPreview = -1
)

type cell struct {
	stepTrigger    atomic.Bool
	noteOffTrigger atomic.Bool
	activeNote     atomic.Int32
	velocityMilli  atomic.Int32 // velocity * 1000, atomics have no float32 type
}

// Bridge is the single-writer (sequencer/control) / single-reader (audio)
// handoff for one slot count worth of 16-step grids.
type Bridge struct {
	cells [][Steps]cell
	// previewMarker is indexed [slot][row]: for a melodic slot row is always
	// 0; for a drum slot row is the pad index (0..15). Each cell holds the
	// step index being previewed for that row, or NoPreview.
	previewMarker [][Steps]atomic.Int32
}

// New creates a Bridge sized for slotCount slots, all cells idle.
func New(slotCount int) *Bridge {
	b := &Bridge{
		cells:         make([][Steps]cell, slotCount),
		previewMarker: make([][Steps]atomic.Int32, slotCount),
	}
	for i := range b.cells {
		for j := range b.cells[i] {
			b.cells[i][j].activeNote.Store(NoActiveNote)
		}
	}
	for i := range b.previewMarker {
		for j := range b.previewMarker[i] {
			b.previewMarker[i][j].Store(NoPreview)
		}
	}
	return b
}

// FireStep is called by the sequencer thread to schedule a note-on trigger
// for (slot, step) with the given note/velocity, carrying the note number
// into activeNote so a later note-off at release time targets the correct
// note even if the pattern mutated in the interim (§4.11).
func (b *Bridge) FireStep(slot, step, note int, velocity float64) {
	c := b.cell(slot, step)
	if c == nil {
		return
	}
	c.activeNote.Store(int32(note))
	c.velocityMilli.Store(int32(velocity * 1000))
	c.stepTrigger.Store(true)
}

// ScheduleNoteOff is called by the sequencer thread (directly, or from a
// short-lived release-timing helper) to mark (slot, step) for note-off on
// the next audio callback.
func (b *Bridge) ScheduleNoteOff(slot, step int) {
	c := b.cell(slot, step)
	if c == nil {
		return
	}
	c.noteOffTrigger.Store(true)
}

// DrainStep is called once per block from the audio callback for every
// (slot, step) cell. It atomically exchanges stepTrigger to false and, if
// it had been set, returns the note/velocity to dispatch as a noteOn. ok is
// false if no trigger was pending.
func (b *Bridge) DrainStep(slot, step int) (note int, velocity float64, ok bool) {
	c := b.cell(slot, step)
	if c == nil {
		return 0, 0, false
	}
	if !c.stepTrigger.Swap(false) {
		return 0, 0, false
	}
	return int(c.activeNote.Load()), float64(c.velocityMilli.Load()) / 1000, true
}

// DrainNoteOff is called once per block from the audio callback for every
// (slot, step) cell. It atomically exchanges noteOffTrigger to false and, if
// it had been set, atomically exchanges activeNote to NoActiveNote and
// returns the note number that was sounding, for the caller to pass to
// engine.NoteOff.
func (b *Bridge) DrainNoteOff(slot, step int) (note int, ok bool) {
	c := b.cell(slot, step)
	if c == nil {
		return 0, false
	}
	if !c.noteOffTrigger.Swap(false) {
		return 0, false
	}
	n := c.activeNote.Swap(NoActiveNote)
	if n == NoActiveNote {
		return 0, false
	}
	return int(n), true
}

// MarkPreview records that the UI previewed (live-wrote) step on (slot,
// row) — row is 0 for a melodic slot, or the drum pad index for a drum
// slot — implementing the preview-suppression marker of §4.10.
func (b *Bridge) MarkPreview(slot, row, step int) {
	if slot < 0 || slot >= len(b.previewMarker) || row < 0 || row >= Steps {
		return
	}
	b.previewMarker[slot][row].Store(int32(step))
}

// ConsumePreview is called by the sequencer thread on reaching step for a
// given row. If a preview marker is set for that exact step, it is consumed
// (reset to NoPreview) and true is returned, telling the caller to skip
// emitting a fresh trigger for this visit.
func (b *Bridge) ConsumePreview(slot, row, step int) bool {
	if slot < 0 || slot >= len(b.previewMarker) || row < 0 || row >= Steps {
		return false
	}
	return b.previewMarker[slot][row].CompareAndSwap(int32(step), NoPreview)
}

func (b *Bridge) cell(slot, step int) *cell {
	if slot < 0 || slot >= len(b.cells) || step < 0 || step >= Steps {
		return nil
	}
	return &b.cells[slot][step]
}

// SlotCount returns the number of slots this bridge was sized for.
func (b *Bridge) SlotCount() int { return len(b.cells) }
