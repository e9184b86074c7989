package control

import (
	"testing"

	"github.com/gridsynth/ether-core/internal/bridge"
	"github.com/gridsynth/ether-core/internal/engine"
	"github.com/gridsynth/ether-core/internal/sequencer"
	"github.com/stretchr/testify/require"
)

type fakeNotePort struct {
	onCalls  []engine.Note
	offCalls []int
}

func (f *fakeNotePort) NoteOn(slot, cell int, n engine.Note)   { f.onCalls = append(f.onCalls, n) }
func (f *fakeNotePort) NoteOff(slot, cell int, note int)       { f.offCalls = append(f.offCalls, note) }
func (f *fakeNotePort) AllNotesOff(slot int)                   {}
func (f *fakeNotePort) SetEngineType(slot int, name string)    {}

func newTestGrid(t *testing.T) (*GridController, *fakeNotePort) {
	t.Helper()
	br := bridge.New(2)
	seq := sequencer.New(br, 2, 120)
	state := NewControlState(2)
	notes := &fakeNotePort{}
	g := &GridController{
		prefix: "/monome",
		seq:    seq,
		state:  state,
		notes:  notes,
	}
	return g, notes
}

func TestHandlePadPlayModeFiresNoteOnOff(t *testing.T) {
	g, notes := newTestGrid(t)
	g.handlePad(0, true)
	require.Len(t, notes.onCalls, 1)
	require.Equal(t, 60, notes.onCalls[0].Number)

	g.handlePad(0, false)
	require.Len(t, notes.offCalls, 1)
	require.Equal(t, 60, notes.offCalls[0])
}

func TestHandlePadDebouncesRepeatPress(t *testing.T) {
	g, notes := newTestGrid(t)
	g.handlePad(3, true)
	g.handlePad(3, true) // repeat while held, should be suppressed
	require.Len(t, notes.onCalls, 1)
}

func TestHandlePadWriteModeTogglesStep(t *testing.T) {
	g, _ := newTestGrid(t)
	g.state.Write.Store(true)
	require.False(t, g.seq.StepActive(0, 5))
	g.handlePad(5, true)
	require.True(t, g.seq.StepActive(0, 5))
	g.handlePad(5, false) // release is a no-op in write mode
	g.handlePad(5, true)
	require.False(t, g.seq.StepActive(0, 5))
}

func TestHandleFunctionRowTogglePlayAndWrite(t *testing.T) {
	g, _ := newTestGrid(t)
	require.False(t, g.seq.Playing())
	g.handleFunctionRow(0, true)
	require.True(t, g.seq.Playing())

	require.False(t, g.state.Write.Load())
	g.handleFunctionRow(1, true)
	require.True(t, g.state.Write.Load())
}

func TestHandleFunctionRowMuteThenDoubleTapSolo(t *testing.T) {
	g, _ := newTestGrid(t)
	g.handleFunctionRow(4, true)
	require.True(t, g.state.Mute(0))

	// Immediate second tap within the window toggles solo instead.
	g.handleFunctionRow(4, true)
	require.True(t, g.state.Solo(0))
}
