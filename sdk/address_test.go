package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"hex", "0x00000000000000000000000000000000000000a1", true},
		{"padded", "  0x00000000000000000000000000000000000000a1 ", true},
		{"zero", "0x0000000000000000000000000000000000000000", false},
		{"short", "0x1234", false},
		{"garbage", "hive:alice", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.input)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestSecondsAddressRoundTrip(t *testing.T) {
	a := SecondsToAddress(3600)
	got, err := SecondsFromAddress(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(3600), got)

	_, err = SecondsFromAddress(alice)
	require.NoError(t, err)
	_, err = SecondsFromAddress(MustAddress("0x1000000000000000000000000000000000000001"))
	require.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1_000")
	require.NoError(t, err)
	assert.Equal(t, Amount(1000), v)
	assert.Equal(t, "1000", v.String())

	_, err = ParseAmount("-1")
	require.Error(t, err)
	_, err = ParseAmount("abc")
	require.Error(t, err)
	assert.Equal(t, Amount(1<<63-1), AmountFromUint64(1<<64-1))
}

func TestParseTimestamp(t *testing.T) {
	v, ok := ParseTimestamp("1700000000")
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), v)
	v, ok = ParseTimestamp("2025-09-03T00:00:00")
	require.True(t, ok)
	assert.Equal(t, int64(1756857600), v)
	_, ok = ParseTimestamp("tomorrow")
	assert.False(t, ok)
}
