package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEU868MaxPayload(t *testing.T) {
	b, err := Get(EU868)
	assert.NoError(t, err)

	tests := []struct {
		dr       int
		expected int
	}{
		{0, 51}, {1, 51}, {2, 51}, {3, 115}, {4, 222}, {5, 222}, {6, 222},
	}
	for _, tc := range tests {
		got, err := b.MaxPayload(tc.dr)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, got, "dr %d", tc.dr)
	}

	_, err = b.MaxPayload(7)
	assert.Error(t, err)
}

func TestEU868DataRateBoundaries(t *testing.T) {
	b, err := Get(EU868)
	assert.NoError(t, err)

	first, err := b.DataRateTable(0)
	assert.NoError(t, err)
	assert.Equal(t, DataRate{SpreadFactor: 12, Bandwidth: 125}, first)

	last, err := b.DataRateTable(6)
	assert.NoError(t, err)
	assert.Equal(t, DataRate{SpreadFactor: 7, Bandwidth: 250}, last)

	_, err = b.DataRateTable(-1)
	assert.Error(t, err)
}

func TestEU868Rx1Channel(t *testing.T) {
	b, err := Get(EU868)
	assert.NoError(t, err)

	ch, rx1DR, err := b.Rx1Channel(868100, 5, 2)
	assert.NoError(t, err)
	assert.Equal(t, uint32(868100), ch.FreqKHz)
	assert.Equal(t, 3, rx1DR)

	// Offset larger than TxDr clamps to 0, not negative.
	_, rx1DR, err = b.Rx1Channel(868100, 1, 5)
	assert.NoError(t, err)
	assert.Equal(t, 0, rx1DR)
}

func TestEU868Rx2Channel(t *testing.T) {
	b, err := Get(EU868)
	assert.NoError(t, err)

	ch, err := b.Rx2Channel(0)
	assert.NoError(t, err)
	assert.Equal(t, uint32(869525), ch.FreqKHz)
}

func TestEU868ChannelSelection(t *testing.T) {
	b, err := Get(EU868)
	assert.NoError(t, err)

	assert.Equal(t, uint32(868100), b.JoinChannel(0).FreqKHz)
	assert.Equal(t, uint32(868300), b.JoinChannel(1).FreqKHz)
	assert.Equal(t, uint32(868500), b.JoinChannel(2).FreqKHz)
	assert.Equal(t, uint32(868100), b.JoinChannel(3).FreqKHz) // wraps mod 3
}

func TestGetUnsupportedRegion(t *testing.T) {
	_, err := Get(Name("US915"))
	assert.Error(t, err)
}
