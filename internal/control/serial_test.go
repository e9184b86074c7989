package control

import (
	"testing"

	"github.com/gridsynth/ether-core/internal/engine"
	"github.com/stretchr/testify/require"
)

func TestParseEncoderLine(t *testing.T) {
	n, delta, ok := parseEncoderLine("E3:-12")
	require.True(t, ok)
	require.Equal(t, 2, n)
	require.Equal(t, -12, delta)
}

func TestParseButtonLine(t *testing.T) {
	n, pressed, ok := parseButtonLine("B1:PRESS")
	require.True(t, ok)
	require.Equal(t, 0, n)
	require.True(t, pressed)

	n, pressed, ok = parseButtonLine("B4:RELEASE")
	require.True(t, ok)
	require.Equal(t, 3, n)
	require.False(t, pressed)

	_, _, ok = parseButtonLine("garbage")
	require.False(t, ok)
}

type fakeParamPort struct {
	calls []struct {
		slot int
		id   engine.ParamID
		v    float64
	}
}

func (f *fakeParamPort) SetParameter(slot int, id engine.ParamID, value float64) {
	f.calls = append(f.calls, struct {
		slot int
		id   engine.ParamID
		v    float64
	}{slot, id, value})
}

func TestNudgeParamAccumulatesRelativeToZero(t *testing.T) {
	fp := &fakeParamPort{}
	state := NewControlState(2)
	c := &SerialController{params: fp, state: state, accum: make(map[encoderKey]float64)}

	c.nudgeParam(0, engine.ParamCutoff, 64) // +64/127 ≈ 0.504
	require.Len(t, fp.calls, 1)
	require.InDelta(t, 64.0/127.0, fp.calls[0].v, 1e-9)

	c.nudgeParam(0, engine.ParamCutoff, 127) // clamps at 1
	require.InDelta(t, 1.0, fp.calls[1].v, 1e-9)
}

func TestHandleButtonLatchAndDoubleTapClear(t *testing.T) {
	fp := &fakeParamPort{}
	state := NewControlState(1)
	c := &SerialController{params: fp, state: state, accum: make(map[encoderKey]float64)}

	c.handleButton("B1:PRESS")
	require.Equal(t, int32(menuParams[0]), state.EncoderLatch[0].Load())

	// A second press on the same encoder within the window is a double-tap:
	// it clears all latches instead of re-latching.
	c.handleButton("B1:PRESS")
	require.Equal(t, int32(-1), state.EncoderLatch[0].Load())
}

func TestHandleButtonEncoder4TogglesEditMode(t *testing.T) {
	state := NewControlState(1)
	c := &SerialController{state: state, accum: make(map[encoderKey]float64)}

	require.False(t, state.EditMode.Load())
	c.handleButton("B4:PRESS")
	require.True(t, state.EditMode.Load())
}
