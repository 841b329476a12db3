package felt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexRoundTrip(t *testing.T) {
	cases := []string{"0x0", "0x1", "0x3", "0xe", "0x1234abcdef"}
	for _, c := range cases {
		f, err := FromHex(c)
		require.NoError(t, err)
		require.Equal(t, c, f.Hex())
	}
}

func TestParseCanonical_RejectsLeadingZeros(t *testing.T) {
	_, err := ParseCanonical("0x0123")
	require.Error(t, err)

	f, err := ParseCanonical("0x0")
	require.NoError(t, err)
	require.True(t, f.IsZero())

	f, err = ParseCanonical("0x123")
	require.NoError(t, err)
	require.Equal(t, "0x123", f.Hex())
}

func TestToBits251_Three(t *testing.T) {
	f := FromUint64(3)
	bits := f.ToBits251()
	require.True(t, bits[249])
	require.True(t, bits[250])
	for i := 0; i < 249; i++ {
		require.Falsef(t, bits[i], "bit %d should be unset", i)
	}
}

func TestToBits251_Fourteen(t *testing.T) {
	f := FromUint64(14)
	bits := f.ToBits251()
	require.True(t, bits[247])
	require.True(t, bits[248])
	require.True(t, bits[249])
	require.False(t, bits[250])
}

func TestFeltFromBits251_One(t *testing.T) {
	var bits [251]bool
	bits[250] = true
	got, err := FeltFromBits251(bits, 0)
	require.NoError(t, err)
	require.Equal(t, FromUint64(1).Hex(), got.Hex())
}

func TestFeltFromBits251_Seven(t *testing.T) {
	var bits [251]bool
	bits[248] = true
	bits[249] = true
	bits[250] = true
	got, err := FeltFromBits251(bits, 0)
	require.NoError(t, err)
	require.Equal(t, FromUint64(7).Hex(), got.Hex())
}

func TestFeltFromBits251_MaskedAndUnmasked(t *testing.T) {
	var bits [251]bool
	bits[0] = true
	bits[250] = true

	got, err := FeltFromBits251(bits, 0)
	require.NoError(t, err)
	require.Equal(t, "1809251394333065553493296640760748560207343510400633813116524750123642650625", got.BigInt().String())

	masked, err := FeltFromBits251(bits, 1)
	require.NoError(t, err)
	require.Equal(t, FromUint64(1).Hex(), masked.Hex())
}

func TestFeltFromBits251_WrongMask(t *testing.T) {
	var bits [251]bool
	_, err := FeltFromBits251(bits, 252)
	require.Error(t, err)
}

func TestBitsRoundTrip(t *testing.T) {
	f, err := FromHex("0x1234abcdef")
	require.NoError(t, err)
	bits := f.ToBits251()
	back, err := FeltFromBits251(bits, 0)
	require.NoError(t, err)
	require.True(t, f.Equal(back))
}
