// Package sequencer implements the Sequencer Engine (§4.10): a 16-step
// per-slot pattern player running on its own goroutine, advancing step time
// from BPM and pushing note/step triggers into the Trigger Bridge for the
// audio callback to pick up. Restructured from the teacher's MML-track
// cursor scheduler into a fixed 16-step clock, per §4.10.
package sequencer

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridsynth/ether-core/internal/bridge"
)

// Steps is the pattern length.
const Steps = bridge.Steps

// Step is one melodic slot's per-step state (§3 Pattern).
type Step struct {
	Active   bool
	Note     int
	Velocity float64
}

// Pattern is a melodic slot's ordered 16-step sequence.
type Pattern [Steps]Step

// DrumPattern maps drum-pad index (0..15) to a 16-bit bitmask of active
// steps, per §3's drum-capable slot representation.
type DrumPattern [Steps]uint16

// ChokeGroup names which pad indices participate in the hat-choke policy
// (§4.10): a closed-hat or pedal-hat firing on a step suppresses any
// open-hat firing on the same step. -1 disables a role.
type ChokeGroup struct {
	ClosedHat int
	PedalHat  int
	OpenHat   int
}

// NoChoke disables the choke policy for a slot.
var NoChoke = ChokeGroup{ClosedHat: -1, PedalHat: -1, OpenHat: -1}

type slotState struct {
	mu       sync.Mutex
	isDrum   bool
	pattern  Pattern
	drum     DrumPattern
	choke    ChokeGroup
	release  float64 // normalized [0,1], feeds (0.1+release*0.8)*stepMs note-off timing
	mute     atomic.Bool
	solo     atomic.Bool
}

// Sequencer drives the 16-step clock on its own goroutine (§5's sequencer
// domain): sleeping between ticks on a monotonic clock, emitting triggers
// through the bridge, and scheduling note-offs via short-lived helper
// goroutines that only ever write atomic flags.
type Sequencer struct {
	br    *bridge.Bridge
	slots []*slotState

	bpmBits atomic.Uint64 // math.Float64bits(bpm)

	playing     atomic.Bool
	currentStep atomic.Int32
	playAll     atomic.Bool
	activeSlot  atomic.Int32

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Sequencer over slotCount slots sharing br, at the given
// initial BPM (default 120 if <= 0).
func New(br *bridge.Bridge, slotCount int, bpm float64) *Sequencer {
	if bpm <= 0 {
		bpm = 120
	}
	s := &Sequencer{
		br:    br,
		slots: make([]*slotState, slotCount),
	}
	for i := range s.slots {
		s.slots[i] = &slotState{choke: NoChoke}
	}
	s.SetBPM(bpm)
	s.playAll.Store(true)
	return s
}

// SetBPM updates the tempo used to compute stepMs = (60/BPM)/4*1000.
func (s *Sequencer) SetBPM(bpm float64) {
	if bpm <= 0 {
		return
	}
	s.bpmBits.Store(math.Float64bits(bpm))
}

// BPM returns the current tempo.
func (s *Sequencer) BPM() float64 { return math.Float64frombits(s.bpmBits.Load()) }

func (s *Sequencer) stepMs() float64 {
	return (60.0 / s.BPM()) / 4.0 * 1000.0
}

// TogglePlay flips the playing flag, per the control plane's togglePlay.
func (s *Sequencer) TogglePlay() bool {
	playing := !s.playing.Load()
	s.playing.Store(playing)
	return playing
}

// Playing reports whether the sequencer is currently advancing.
func (s *Sequencer) Playing() bool { return s.playing.Load() }

// CurrentStep returns the step the sequencer last visited.
func (s *Sequencer) CurrentStep() int { return int(s.currentStep.Load()) }

// SetPlayAll toggles between "play all slots" and "active instrument only"
// mode, per §9's resolved precedence.
func (s *Sequencer) SetPlayAll(all bool) { s.playAll.Store(all) }

// SetActiveSlot sets the cursor used in single-slot play mode.
func (s *Sequencer) SetActiveSlot(slot int) { s.activeSlot.Store(int32(slot)) }

// SetMute/SetSolo implement the control plane's per-slot mute/solo state.
func (s *Sequencer) SetMute(slot int, mute bool) {
	if st := s.slot(slot); st != nil {
		st.mute.Store(mute)
	}
}

func (s *Sequencer) SetSolo(slot int, solo bool) {
	if st := s.slot(slot); st != nil {
		st.solo.Store(solo)
	}
}

// SetDrumSlot marks slot as drum-capable (pattern interpreted as a
// DrumPattern instead of a melodic Pattern) and configures its choke group.
func (s *Sequencer) SetDrumSlot(slot int, isDrum bool, choke ChokeGroup) {
	if st := s.slot(slot); st != nil {
		st.mu.Lock()
		st.isDrum = isDrum
		st.choke = choke
		st.mu.Unlock()
	}
}

// SetRelease updates the normalized release value used to time a melodic
// slot's scheduled note-off, per §9's single note-off-scheduling policy.
func (s *Sequencer) SetRelease(slot int, release float64) {
	if st := s.slot(slot); st != nil {
		st.mu.Lock()
		st.release = clamp01(release)
		st.mu.Unlock()
	}
}

// SetStep writes one melodic step. Per §9's pattern-ownership decision,
// this must only be called from the sequencer/control goroutine, never the
// audio thread.
func (s *Sequencer) SetStep(slot, step int, active bool, note int, velocity float64) {
	st := s.slot(slot)
	if st == nil || step < 0 || step >= Steps {
		return
	}
	st.mu.Lock()
	st.pattern[step] = Step{Active: active, Note: note, Velocity: velocity}
	st.mu.Unlock()
}

// SetDrumStep sets or clears bit `step` of pad's bitmask on a drum slot.
func (s *Sequencer) SetDrumStep(slot, pad, step int, active bool) {
	st := s.slot(slot)
	if st == nil || pad < 0 || pad >= Steps || step < 0 || step >= Steps {
		return
	}
	st.mu.Lock()
	if active {
		st.drum[pad] |= 1 << uint(step)
	} else {
		st.drum[pad] &^= 1 << uint(step)
	}
	st.mu.Unlock()
}

// ClearPattern clears slot's pattern. Per §3, clearing is done on the
// sequencer thread; callers should route this through the same goroutine
// that owns control-plane dispatch (both are in the "sequencer domain" of
// §5) or ensure playing is false.
func (s *Sequencer) ClearPattern(slot int) {
	st := s.slot(slot)
	if st == nil {
		return
	}
	st.mu.Lock()
	st.pattern = Pattern{}
	st.drum = DrumPattern{}
	st.mu.Unlock()
}

// PreviewStep records a live-write preview for (slot, row, step), where row
// is 0 for melodic slots or the pad index for drum slots, and immediately
// fires the trigger so the UI hears it right away. When the sequencer later
// reaches that step, the marker is consumed and the regular trigger for
// that visit is suppressed (§4.10, §8 scenario 4).
func (s *Sequencer) PreviewStep(slot, row, step, note int, velocity float64) {
	st := s.slot(slot)
	if st == nil {
		return
	}
	s.br.MarkPreview(slot, row, step)
	st.mu.Lock()
	isDrum := st.isDrum
	st.mu.Unlock()
	cell := step
	if isDrum {
		cell = row // drum trigger cells are indexed by pad, not by step
	}
	s.br.FireStep(slot, cell, note, velocity)
}

// Start launches the step-clock goroutine. A second Start without an
// intervening Stop is a no-op.
func (s *Sequencer) Start() {
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.stopCh)
}

// Stop signals the step-clock goroutine to exit at its next sleep boundary
// and waits for it to return, per §5's cancellation contract.
func (s *Sequencer) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
	s.stopCh = nil
	s.playing.Store(false)
}

func (s *Sequencer) run(stop chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}

		if s.playing.Load() {
			s.tick()
			step := (s.CurrentStep() + 1) % Steps
			s.currentStep.Store(int32(step))
		}

		select {
		case <-stop:
			return
		case <-time.After(time.Duration(s.stepMs() * float64(time.Millisecond))):
		}
	}
}

func (s *Sequencer) tick() {
	step := s.CurrentStep()
	stepMs := s.stepMs()
	activeSlot := int(s.activeSlot.Load())
	playAll := s.playAll.Load()

	anySolo := false
	for _, st := range s.slots {
		if st.solo.Load() {
			anySolo = true
			break
		}
	}

	for i, st := range s.slots {
		if !audible(st, i, activeSlot, playAll, anySolo) {
			continue
		}

		st.mu.Lock()
		isDrum := st.isDrum
		var melStep Step
		var drum DrumPattern
		var choke ChokeGroup
		release := st.release
		if isDrum {
			drum = st.drum
			choke = st.choke
		} else {
			melStep = st.pattern[step]
		}
		st.mu.Unlock()

		if isDrum {
			s.tickDrum(i, step, drum, choke)
			continue
		}

		if !melStep.Active {
			continue
		}
		if s.br.ConsumePreview(i, 0, step) {
			continue
		}
		s.br.FireStep(i, step, melStep.Note, melStep.Velocity)
		offDelay := (0.1 + release*0.8) * stepMs
		s.scheduleNoteOff(i, step, offDelay)
	}
}

func (s *Sequencer) tickDrum(slot, step int, drum DrumPattern, choke ChokeGroup) {
	var fires [Steps]bool
	for pad := 0; pad < Steps; pad++ {
		if drum[pad]&(1<<uint(step)) != 0 {
			fires[pad] = true
		}
	}
	chokeHit := (choke.ClosedHat >= 0 && fires[choke.ClosedHat]) ||
		(choke.PedalHat >= 0 && fires[choke.PedalHat])
	if chokeHit && choke.OpenHat >= 0 {
		fires[choke.OpenHat] = false
	}
	for pad, fired := range fires {
		if !fired {
			continue
		}
		if s.br.ConsumePreview(slot, pad, step) {
			continue
		}
		s.br.FireStep(slot, pad, pad, 1.0)
	}
}

// scheduleNoteOff spawns the short-lived per-§5 helper task: it sleeps for
// delayMs then writes the note-off flag, unless playback has stopped in the
// meantime, in which case it skips the write entirely.
func (s *Sequencer) scheduleNoteOff(slot, step int, delayMs float64) {
	go func() {
		time.Sleep(time.Duration(delayMs * float64(time.Millisecond)))
		if !s.playing.Load() {
			return
		}
		s.br.ScheduleNoteOff(slot, step)
	}()
}

func audible(st *slotState, slot, activeSlot int, playAll, anySolo bool) bool {
	if anySolo {
		return st.solo.Load()
	}
	if !playAll && slot != activeSlot {
		return false
	}
	return !st.mute.Load()
}

// IsDrumSlot reports whether slot is currently configured as drum-capable,
// for the control plane's pad-zone dispatch decision (melodic: pad index is
// a step index; drum: pad index is a pad number, edited against the current
// playhead step).
func (s *Sequencer) IsDrumSlot(slot int) bool {
	st := s.slot(slot)
	if st == nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.isDrum
}

// StepActive reports a melodic slot's step state, for the grid controller's
// write-mode toggle logic.
func (s *Sequencer) StepActive(slot, step int) bool {
	st := s.slot(slot)
	if st == nil || step < 0 || step >= Steps {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.pattern[step].Active
}

// DrumStepActive reports whether pad has a hit at step, for the grid
// controller's write-mode toggle logic.
func (s *Sequencer) DrumStepActive(slot, pad, step int) bool {
	st := s.slot(slot)
	if st == nil || pad < 0 || pad >= Steps || step < 0 || step >= Steps {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.drum[pad]&(1<<uint(step)) != 0
}

func (s *Sequencer) slot(i int) *slotState {
	if i < 0 || i >= len(s.slots) {
		return nil
	}
	return s.slots[i]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
