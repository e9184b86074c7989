package sequencer

import (
	"testing"
	"time"

	"github.com/gridsynth/ether-core/internal/bridge"
	"github.com/stretchr/testify/require"
)

func TestPlayEmptyPatternAdvancesSteps(t *testing.T) {
	br := bridge.New(4)
	seq := New(br, 4, 480) // fast tempo to keep the test quick: stepMs = (60/480)/4*1000 = 31.25ms
	seq.TogglePlay()
	seq.Start()
	defer seq.Stop()

	time.Sleep(500 * time.Millisecond)
	step := seq.CurrentStep()
	require.GreaterOrEqual(t, step, 0)
	require.Less(t, step, Steps)
}

func TestSingleMelodicStepFiresTrigger(t *testing.T) {
	br := bridge.New(1)
	seq := New(br, 1, 6000) // stepMs = (60/6000)/4*1000 = 2.5ms, step 0 fires almost immediately
	seq.SetStep(0, 0, true, 60, 0.8)
	seq.SetRelease(0, 0.5)
	seq.TogglePlay()
	seq.Start()
	defer seq.Stop()

	deadline := time.Now().Add(200 * time.Millisecond)
	fired := false
	for time.Now().Before(deadline) {
		if note, vel, ok := br.DrainStep(0, 0); ok {
			require.Equal(t, 60, note)
			require.InDelta(t, 0.8, vel, 1e-6)
			fired = true
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, fired, "expected step 0 to fire a trigger")
}

func TestDrumChokeSuppressesOpenHat(t *testing.T) {
	br := bridge.New(1)
	seq := New(br, 1, 120)
	const closedHat, openHat = 3, 4
	seq.SetDrumSlot(0, true, ChokeGroup{ClosedHat: closedHat, PedalHat: -1, OpenHat: openHat})
	seq.SetDrumStep(0, closedHat, 3, true)
	seq.SetDrumStep(0, openHat, 3, true)

	seq.tickDrum(0, 3, seq.slots[0].drum, seq.slots[0].choke)

	_, _, closedFired := br.DrainStep(0, closedHat)
	_, _, openFired := br.DrainStep(0, openHat)
	require.True(t, closedFired, "closed-hat should fire")
	require.False(t, openFired, "open-hat should be choked")
}

func TestPreviewSuppressionSkipsOnce(t *testing.T) {
	br := bridge.New(1)
	seq := New(br, 1, 120)
	seq.SetStep(0, 7, true, 62, 0.9)
	seq.PreviewStep(0, 0, 7, 62, 0.9)

	// Preview fired immediately.
	_, _, ok := br.DrainStep(0, 7)
	require.True(t, ok)

	// When the sequencer later visits step 7, the marker is consumed and no
	// second trigger is emitted.
	seq.currentStep.Store(7)
	seq.tick()
	_, _, ok = br.DrainStep(0, 7)
	require.False(t, ok, "preview marker should have suppressed the regular trigger")
}
