package object

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadingZeroBits(t *testing.T) {
	tests := []struct {
		hex  string
		want int
	}{
		{"ff" + strings.Repeat("00", 19), 0},
		{"7f" + strings.Repeat("ff", 19), 1},
		{"01" + strings.Repeat("ff", 19), 7},
		{"00ab" + strings.Repeat("ff", 18), 8},
		{"0040" + strings.Repeat("ff", 18), 9},
		{"0000" + strings.Repeat("ff", 18), 16},
		{strings.Repeat("00", 20), 160},
		{strings.Repeat("00", 32), 256},
	}
	for _, tt := range tests {
		h, err := ParseHash(tt.hex)
		require.NoError(t, err, "ParseHash(%s)", tt.hex)
		assert.Equal(t, tt.want, h.LeadingZeroBits(), "LeadingZeroBits(%s)", tt.hex)
	}
}

func TestParseHashRejectsBadInput(t *testing.T) {
	_, err := ParseHash("abcd")
	require.ErrorIs(t, err, ErrInvalidHashLength)

	_, err = ParseHash(strings.Repeat("zz", 20))
	require.Error(t, err)
}

func TestHashStringAndClone(t *testing.T) {
	want := "00ab" + strings.Repeat("cd", 18)
	h, err := ParseHash(strings.ToUpper(want))
	require.NoError(t, err)
	assert.Equal(t, want, h.String())

	c := h.Clone()
	c[0] = 0xff
	assert.Equal(t, byte(0x00), h[0], "Clone aliases the source")
}

func TestParseHashAlgo(t *testing.T) {
	for in, want := range map[string]HashAlgo{"": SHA1, "sha1": SHA1, "SHA256": SHA256} {
		got, err := ParseHashAlgo(in)
		require.NoError(t, err, "ParseHashAlgo(%q)", in)
		assert.Equal(t, want, got, "ParseHashAlgo(%q)", in)
	}
	_, err := ParseHashAlgo("md5")
	require.Error(t, err)
}

func TestHashObjectMatchesGit(t *testing.T) {
	// git hash-object of an empty blob.
	assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", SHA1.HashObject(KindBlob, nil).String())
	assert.Equal(t, "473a0f4c3be8a93681a267e3b1e9a7dcda1185436fe141f7749120a303721813", SHA256.HashObject(KindBlob, nil).String())
}

func TestCheckLength(t *testing.T) {
	require.NoError(t, SHA1.CheckLength(SHA1.Sum(nil)))
	require.ErrorIs(t, SHA256.CheckLength(SHA1.Sum(nil)), ErrInvalidHashLength)
}
