package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/islandcalc/islandcalc/internal/app/calculator"
	"github.com/islandcalc/islandcalc/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(calculator.DefaultEconomy(), 16, time.Hour)
}

func ptr[T any](v T) *T { return &v }

func TestStore_CreateDefaults(t *testing.T) {
	s := newTestStore(t)

	sess := s.Create()
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, domain.DefaultInputs(), sess.Inputs)
	assert.Equal(t, 1, s.Len())

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("no-such-session")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStore_UpdateClamps(t *testing.T) {
	s := newTestStore(t)
	sess := s.Create()

	got, err := s.Update(sess.ID, Patch{
		TokenPriceUSD:       ptr(-1.0),
		StakedAmount:        ptr(-500.0),
		CompoundRatePercent: ptr(140),
	})
	require.NoError(t, err)

	assert.Zero(t, got.Inputs.TokenPriceUSD)
	assert.Zero(t, got.Inputs.StakedAmount)
	assert.Equal(t, 100, got.Inputs.CompoundRatePercent)

	got, err = s.Update(sess.ID, Patch{CompoundRatePercent: ptr(-5)})
	require.NoError(t, err)
	assert.Zero(t, got.Inputs.CompoundRatePercent)
}

func TestStore_UpdateIntensity(t *testing.T) {
	s := newTestStore(t)
	sess := s.Create()

	_, err := s.Update(sess.ID, Patch{Intensity: ptr(domain.IntensityKey("nightmare"))})
	assert.ErrorIs(t, err, domain.ErrUnknownIntensity)

	got, err := s.Update(sess.ID, Patch{Intensity: ptr(domain.IntensityHigh)})
	require.NoError(t, err)
	assert.Equal(t, domain.IntensityHigh, got.Inputs.Intensity)
}

func TestStore_CustomIntensityOverwrites(t *testing.T) {
	s := newTestStore(t)
	sess := s.Create()

	_, err := s.Update(sess.ID, Patch{Intensity: ptr(domain.IntensityCustom), CustomBloomsPerDay: ptr(int64(800))})
	require.NoError(t, err)
	got, err := s.Update(sess.ID, Patch{CustomBloomsPerDay: ptr(int64(1200))})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got.Inputs.CustomBloomsPerDay)

	_, res, err := s.Compute(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), res.Intensity.BloomsPerCycle)

	// Switching away and back to custom starts from zero again.
	_, err = s.Update(sess.ID, Patch{Intensity: ptr(domain.IntensityCasual)})
	require.NoError(t, err)
	got, err = s.Update(sess.ID, Patch{Intensity: ptr(domain.IntensityCustom)})
	require.NoError(t, err)
	assert.Zero(t, got.Inputs.CustomBloomsPerDay)
}

func TestStore_CustomIsPerSession(t *testing.T) {
	s := newTestStore(t)
	a := s.Create()
	b := s.Create()

	_, err := s.Update(a.ID, Patch{Intensity: ptr(domain.IntensityCustom), CustomBloomsPerDay: ptr(int64(9000))})
	require.NoError(t, err)
	_, err = s.Update(b.ID, Patch{Intensity: ptr(domain.IntensityCustom), CustomBloomsPerDay: ptr(int64(10))})
	require.NoError(t, err)

	_, resA, err := s.Compute(a.ID)
	require.NoError(t, err)
	_, resB, err := s.Compute(b.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(9000), resA.Intensity.BloomsPerDay)
	assert.Equal(t, int64(10), resB.Intensity.BloomsPerDay)
}

func TestStore_Boosts(t *testing.T) {
	s := newTestStore(t)
	sess := s.Create()

	_, err := s.AddBoost(sess.ID, "iron", 2)
	require.NoError(t, err)
	_, err = s.AddBoost(sess.ID, "ultra", 1)
	require.NoError(t, err)
	got, err := s.AddBoost(sess.ID, "iron", 1)
	require.NoError(t, err)
	require.Len(t, got.Inputs.Boosts, 3)

	_, res, err := s.Compute(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100+600+6400+300), res.MaxCap)

	got, err = s.RemoveBoost(sess.ID, 1)
	require.NoError(t, err)
	require.Len(t, got.Inputs.Boosts, 2)
	assert.Equal(t, "iron", got.Inputs.Boosts[0].Tier.Key)
	assert.Equal(t, int64(1), got.Inputs.Boosts[1].Count)

	_, err = s.RemoveBoost(sess.ID, 5)
	assert.ErrorIs(t, err, domain.ErrBoostIndexInvalid)
}

func TestStore_AddBoostIgnoredCases(t *testing.T) {
	s := newTestStore(t)
	sess := s.Create()

	got, err := s.AddBoost(sess.ID, domain.BoostTierNone, 3)
	require.NoError(t, err)
	assert.Empty(t, got.Inputs.Boosts)

	got, err = s.AddBoost(sess.ID, "gold", 0)
	require.NoError(t, err)
	assert.Empty(t, got.Inputs.Boosts)

	_, err = s.AddBoost(sess.ID, "platinum", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownBoostTier)
}

func TestStore_ReturnedCopiesAreIsolated(t *testing.T) {
	s := newTestStore(t)
	sess := s.Create()
	got, err := s.AddBoost(sess.ID, "neon", 1)
	require.NoError(t, err)

	got.Inputs.Boosts[0].Count = 99

	again, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Inputs.Boosts[0].Count)
}

func TestStore_SetPriceAndDelete(t *testing.T) {
	s := newTestStore(t)
	sess := s.Create()

	got, err := s.SetPrice(sess.ID, 0.123)
	require.NoError(t, err)
	assert.Equal(t, 0.123, got.Inputs.TokenPriceUSD)

	assert.True(t, s.Delete(sess.ID))
	assert.False(t, s.Delete(sess.ID))
	_, err = s.Get(sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore(calculator.DefaultEconomy(), 4, 20*time.Millisecond)
	sess := s.Create()

	time.Sleep(80 * time.Millisecond)

	_, err := s.Get(sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStore_ConcurrentCreateAndLen(t *testing.T) {
	s := NewStore(calculator.DefaultEconomy(), 256, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := s.Create()
			_, err := s.AddBoost(sess.ID, "ultra", 1)
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, s.Len(), 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, s.Len())
}
