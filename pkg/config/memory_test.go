package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemoryRoundTrip(t *testing.T) {
	bytes, err := ParseMemory("256M")
	require.NoError(t, err)
	assert.Equal(t, int64(256*1024*1024), bytes)
	assert.Equal(t, "256M", FormatMemoryMB(bytes))
}

func TestParseMemoryEmptyIsZero(t *testing.T) {
	bytes, err := ParseMemory("")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bytes)
	assert.Equal(t, "0M", FormatMemoryMB(0))
}

func TestParseMemoryUnknownSuffixDefaultsToMultiplierOne(t *testing.T) {
	bytes, err := ParseMemory("512X")
	require.NoError(t, err)
	assert.Equal(t, int64(512), bytes)
}

func TestParseMemoryUnits(t *testing.T) {
	cases := map[string]int64{
		"1K": 1024,
		"1M": 1024 * 1024,
		"1G": 1024 * 1024 * 1024,
		"1k": 1024,
		"2G": 2 * 1024 * 1024 * 1024,
	}
	for input, want := range cases {
		got, err := ParseMemory(input)
		require.NoError(t, err)
		assert.Equal(t, want, got, input)
	}
}

func TestParseMemoryInvalid(t *testing.T) {
	_, err := ParseMemory("M")
	assert.Error(t, err)
}
