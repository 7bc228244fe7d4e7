package rarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/hashrarity/pkg/object"
)

func mustHash(t *testing.T, hexStr string) object.Hash {
	t.Helper()
	h, err := object.ParseHash(hexStr)
	require.NoError(t, err)
	return h
}

func TestTierBoundaries(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		zeros int
		want  Tier
	}{
		{0, Common},
		{7, Common},
		{8, Uncommon},
		{15, Uncommon},
		{16, Rare},
		{17, Rare},
		{160, Rare},
		{256, Rare},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.TierFor(tt.zeros), "zeros=%d", tt.zeros)
	}
}

func TestTierForIsMonotonic(t *testing.T) {
	th := DefaultThresholds()
	prev := th.TierFor(0)
	for z := 1; z <= 256; z++ {
		cur := th.TierFor(z)
		require.GreaterOrEqual(t, cur, prev, "tier decreased at %d zeros", z)
		prev = cur
	}
}

func TestClassifyExamples(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name string
		hex  string
		want Tier
	}{
		{"leading ff", "ff" + strings.Repeat("00", 19), Common},
		{"one zero byte", "00ab" + strings.Repeat("ff", 18), Uncommon},
		{"two zero bytes", "0000" + strings.Repeat("ff", 18), Rare},
		{"all zero sha1", strings.Repeat("00", 20), Rare},
		{"all zero sha256", strings.Repeat("00", 32), Rare},
		{"seven zero bits", "01" + strings.Repeat("00", 19), Common},
		{"fifteen zero bits", "0001" + strings.Repeat("00", 18), Uncommon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := mustHash(t, tt.hex)
			assert.Equal(t, tt.want, Classify(h, th))
			assert.Equal(t, tt.want, Classify(h.Clone(), th), "classification must depend only on the bytes")
		})
	}
}

func TestClassifyPanicsOnEmptyHash(t *testing.T) {
	assert.Panics(t, func() { Classify(nil, DefaultThresholds()) })
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())
	require.NoError(t, Thresholds{CommonBits: 4, UncommonBits: 4}.Validate())

	err := Thresholds{CommonBits: 12, UncommonBits: 4}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not exceed")

	err = Thresholds{CommonBits: -1, UncommonBits: -2}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "common_bits must be >= 0")
	assert.Contains(t, err.Error(), "uncommon_bits must be >= 0")
}

func TestCustomThresholds(t *testing.T) {
	th := Thresholds{CommonBits: 4, UncommonBits: 12}
	assert.Equal(t, Common, th.TierFor(3))
	assert.Equal(t, Uncommon, th.TierFor(4))
	assert.Equal(t, Uncommon, th.TierFor(11))
	assert.Equal(t, Rare, th.TierFor(12))
}

func TestExpectedSharesSumToOne(t *testing.T) {
	for _, th := range []Thresholds{DefaultThresholds(), {CommonBits: 0, UncommonBits: 3}, {CommonBits: 5, UncommonBits: 5}} {
		var sum float64
		for _, tier := range Tiers {
			sum += th.Expected(tier)
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "thresholds %+v", th)
	}
	th := DefaultThresholds()
	assert.InDelta(t, 255.0/256, th.Expected(Common), 1e-12)
	assert.InDelta(t, 1.0/256-1.0/65536, th.Expected(Uncommon), 1e-12)
	assert.InDelta(t, 1.0/65536, th.Expected(Rare), 1e-12)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "Common", Common.String())
	assert.Equal(t, "Uncommon", Uncommon.String())
	assert.Equal(t, "Rare", Rare.String())
	assert.Equal(t, "Tier(7)", Tier(7).String())
}
