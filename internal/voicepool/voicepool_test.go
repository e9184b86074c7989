package voicepool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocatePrefersFirstInactive(t *testing.T) {
	a := New()
	infos := []VoiceInfo{
		{Active: true, AllocationID: 1},
		{Active: false},
		{Active: true, AllocationID: 2},
	}
	slot, stolen := a.Allocate(infos)
	require.Equal(t, 1, slot)
	require.False(t, stolen)
}

func TestAllocateStealsLowestOutputReleasingVoice(t *testing.T) {
	a := New()
	infos := []VoiceInfo{
		{Active: true, Releasing: true, OutputLevel: 0.4, AllocationID: 1},
		{Active: true, Releasing: true, OutputLevel: 0.1, AllocationID: 2},
		{Active: true, Releasing: false, OutputLevel: 0.9, AllocationID: 3},
	}
	slot, stolen := a.Allocate(infos)
	require.Equal(t, 1, slot)
	require.True(t, stolen)
}

func TestAllocateFallsBackToOldestWhenNoneReleasing(t *testing.T) {
	a := New()
	infos := []VoiceInfo{
		{Active: true, AllocationID: 5},
		{Active: true, AllocationID: 2},
		{Active: true, AllocationID: 9},
	}
	slot, stolen := a.Allocate(infos)
	require.Equal(t, 1, slot)
	require.True(t, stolen)
}

func TestNextAllocationIDIncreasesMonotonically(t *testing.T) {
	a := New()
	id1 := a.NextAllocationID()
	id2 := a.NextAllocationID()
	require.Less(t, id1, id2)
}
