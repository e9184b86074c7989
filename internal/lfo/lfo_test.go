package lfo

import (
	"math"
	"testing"
)

func TestBankTriangleBasicShape(t *testing.T) {
	b := New()
	b.SetWaveform(0, WaveTriangle)
	b.SetRate(0, 1.0)
	b.SetDepth(0, 1.0)

	sr := 100.0 // 100 samples per second = 100 samples per cycle
	samples := make([]float64, 100)
	for i := range samples {
		b.Process(sr)
		samples[i] = b.Value(0)
	}

	if math.Abs(samples[0]-(-1.0)) > 0.05 {
		t.Errorf("triangle at phase 0: got %f, want -1.0", samples[0])
	}
	if math.Abs(samples[25]) > 0.05 {
		t.Errorf("triangle at phase 0.25: got %f, want ~0", samples[25])
	}
	if math.Abs(samples[50]-1.0) > 0.05 {
		t.Errorf("triangle at phase 0.5: got %f, want 1.0", samples[50])
	}
}

func TestBankSquareShape(t *testing.T) {
	b := New()
	b.SetWaveform(1, WaveSquare)
	b.SetRate(1, 1.0)
	b.SetDepth(1, 1.0)

	sr := 100.0
	b.Process(sr)
	v := b.Value(1)
	if math.Abs(v-1.0) > 0.01 {
		t.Errorf("square first half: got %f, want 1.0", v)
	}
	for i := 1; i < 75; i++ { // the 75th sample is computed at phase 0.74
		b.Process(sr)
	}
	v = b.Value(1)
	if math.Abs(v-(-1.0)) > 0.01 {
		t.Errorf("square second half: got %f, want -1.0", v)
	}
}

func TestBankSineShape(t *testing.T) {
	b := New()
	b.SetWaveform(2, WaveSine)
	b.SetRate(2, 1.0)
	b.SetDepth(2, 1.0)

	sr := 100.0
	b.Process(sr)
	if math.Abs(b.Value(2)) > 0.01 {
		t.Errorf("sine at phase 0: got %f, want ~0", b.Value(2))
	}
	for i := 1; i < 25; i++ {
		b.Process(sr)
	}
	if math.Abs(b.Value(2)-1.0) > 0.05 {
		t.Errorf("sine at phase 0.25: got %f, want 1.0", b.Value(2))
	}
}

func TestBankZeroDepthReturnsZero(t *testing.T) {
	b := New()
	b.SetWaveform(0, WaveTriangle)
	b.SetRate(0, 5.0)
	b.SetDepth(0, 0)
	b.Process(44100)
	if v := b.Value(0); v != 0 {
		t.Errorf("zero depth should return 0, got %f", v)
	}
}

func TestBankZeroRateReturnsZero(t *testing.T) {
	b := New()
	b.SetWaveform(0, WaveTriangle)
	b.SetRate(0, 0)
	b.SetDepth(0, 1.0)
	b.Process(44100)
	if v := b.Value(0); v != 0 {
		t.Errorf("zero rate should return 0, got %f", v)
	}
}

func TestBankKeySyncResetsPhaseOnTrigger(t *testing.T) {
	b := New()
	b.SetWaveform(3, WaveTriangle)
	b.SetRate(3, 1.0)
	b.SetDepth(3, 1.0)
	b.SetSyncMode(3, SyncKey)

	for i := 0; i < 60; i++ {
		b.Process(100)
	}
	b.TriggerMask(1 << 3)
	b.Process(100)
	if math.Abs(b.Value(3)-(-1.0)) > 0.05 {
		t.Errorf("key-synced LFO should restart at phase 0 after trigger, got %f", b.Value(3))
	}
}

func TestBankTempoSyncFollowsBPM(t *testing.T) {
	b := New()
	b.SetBPM(120) // 2 quarter notes per second
	b.SetWaveform(4, WaveSquare)
	b.SetSyncMode(4, SyncTempo)
	b.SetTempoDivision(4, 1)
	b.SetDepth(4, 1.0)

	sr := 100.0
	for i := 0; i < 38; i++ { // half cycle at 2Hz = 0.25s = 25 samples; sample 38 is at phase 0.74
		b.Process(sr)
	}
	if b.Value(4) != -1.0 {
		t.Errorf("expected tempo-synced square to have flipped after half a cycle (25 samples), got %f", b.Value(4))
	}
}

func TestBankOneShotEnvelopeDoesNotLoop(t *testing.T) {
	b := New()
	b.SetWaveform(5, WaveSaw)
	b.SetRate(5, 10.0)
	b.SetDepth(5, 1.0)
	b.SetSyncMode(5, SyncOneShotEnvelope)
	b.TriggerMask(1 << 5)

	sr := 100.0
	var sawZero bool
	for i := 0; i < 500; i++ {
		b.Process(sr)
		if b.Value(5) == 0 {
			sawZero = true
		}
	}
	if !sawZero {
		t.Error("one-shot envelope LFO should settle to 0 instead of looping")
	}
}

func TestBankRandomProducesBoundedValues(t *testing.T) {
	b := New()
	b.SetWaveform(6, WaveRandom)
	b.SetRate(6, 10.0)
	b.SetDepth(6, 1.0)

	sr := 1000.0
	for i := 0; i < 200; i++ {
		b.Process(sr)
		if math.Abs(b.Value(6)) > 1.0 {
			t.Errorf("random sample exceeds depth: %f", b.Value(6))
		}
	}
}
