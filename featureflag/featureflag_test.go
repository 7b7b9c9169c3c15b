package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("names are normalized", func(t *testing.T) {
		f := New([]string{" disable_ground_index", "DISABLE_ENTITY_ADD_BROADCAST ", ""})
		require.Len(t, f, 2)
		require.True(t, f.IsSet(FlagDisableGroundIndex))
		require.True(t, f.IsSet(FlagDisableEntityAddBroadcast))
	})

	t.Run("unknown flags are kept", func(t *testing.T) {
		f := New([]string{"experimental"})
		require.True(t, f.IsSet("EXPERIMENTAL"))
	})

	t.Run("flags are sorted", func(t *testing.T) {
		f := New([]string{
			string(FlagDisableSceneClearBroadcast),
			string(FlagDisableEntityDeleteBroadcast),
		})
		require.Equal(t, []Flag{
			FlagDisableEntityDeleteBroadcast,
			FlagDisableSceneClearBroadcast,
		}, f.Flags())
	})
}

func TestFeatureFlag(t *testing.T) {
	f := New([]string{string(FlagDisableGroundIndex)})

	t.Run("run if set", func(t *testing.T) {
		var run bool
		f.IfSet(FlagDisableGroundIndex, func() {
			run = true
		})
		require.True(t, run)

		run = false
		f.IfSet(FlagDisableEntityAddBroadcast, func() {
			run = true
		})
		require.False(t, run)
	})

	t.Run("run if not set", func(t *testing.T) {
		var run bool
		f.IfNotSet(FlagDisableGroundIndex, func() {
			run = true
		})
		require.False(t, run)

		f.IfNotSet(FlagDisableEntityAddBroadcast, func() {
			run = true
		})
		require.True(t, run)
	})

	t.Run("nil feature flag has no flag set", func(t *testing.T) {
		var empty FeatureFlag
		require.False(t, empty.IsSet(FlagDisableGroundIndex))
		require.Empty(t, empty.Flags())

		var run bool
		empty.IfNotSet(FlagDisableGroundIndex, func() {
			run = true
		})
		require.True(t, run)
	})
}
