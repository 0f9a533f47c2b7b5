package alert

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultChimeLength(t *testing.T) {
	assert.Equal(t, 700*time.Millisecond, DefaultChime.Length())
	assert.Len(t, DefaultChime.Samples(), int(0.7*22050))
}

func TestSamplesStayInRange(t *testing.T) {
	loud := DefaultChime
	loud.StartGain = 0.9
	loud.EndGain = 0.8

	for _, s := range loud.Samples() {
		require.True(t, s >= -1 && s <= 1)
	}
}

func TestFirstToneFrequency(t *testing.T) {
	samples := DefaultChime.Samples()
	// only the 880Hz tone plays during the first 200ms
	window := samples[:int(0.2*22050)]

	crossings := 0
	for i := 1; i < len(window); i++ {
		if (window[i-1] < 0) != (window[i] < 0) {
			crossings++
		}
	}
	assert.InDelta(t, 2*880*0.2, crossings, 4)
}

func TestGainDecays(t *testing.T) {
	c := DefaultChime
	assert.InDelta(t, 0.3, c.gain(0, 0.5), 1e-9)
	assert.InDelta(t, 0.01, c.gain(0.5, 0.5), 1e-9)
	assert.Less(t, c.gain(0.4, 0.5), c.gain(0.1, 0.5))
}

func TestWAVHeader(t *testing.T) {
	wav := DefaultChime.WAV()
	samples := len(DefaultChime.Samples())

	require.Len(t, wav, 44+samples*2)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, "data", string(wav[36:40]))

	le := binary.LittleEndian
	assert.Equal(t, uint32(36+samples*2), le.Uint32(wav[4:8]))
	assert.Equal(t, uint16(1), le.Uint16(wav[20:22]))
	assert.Equal(t, uint16(1), le.Uint16(wav[22:24]))
	assert.Equal(t, uint32(22050), le.Uint32(wav[24:28]))
	assert.Equal(t, uint16(16), le.Uint16(wav[34:36]))
	assert.Equal(t, uint32(samples*2), le.Uint32(wav[40:44]))

	peak := 0
	for i := 44; i < len(wav); i += 2 {
		v := int(int16(le.Uint16(wav[i:])))
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	limit := float64(math.MaxInt16)
	assert.Greater(t, peak, int(0.2*limit))
	assert.Less(t, peak, int(0.7*limit))
}

func TestBellPlayer(t *testing.T) {
	var out bytes.Buffer
	p := NewBellPlayer(&out, DefaultChime)

	require.NoError(t, p.Play(context.Background()))
	assert.Equal(t, "\a\a", out.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Play(ctx))
}

func TestCommandPlayer(t *testing.T) {
	p := NewCommandPlayer(DefaultChime, "cat")
	assert.NoError(t, p.Play(context.Background()))

	missing := NewCommandPlayer(DefaultChime, "no-such-audio-player-for-tests")
	assert.Error(t, missing.Play(context.Background()))
}

func TestNewPlayerFallsBackToBell(t *testing.T) {
	var out bytes.Buffer
	p := NewPlayer(DefaultChime, []string{"no-such-audio-player-for-tests", "-q"}, &out)
	_, ok := p.(*BellPlayer)
	assert.True(t, ok)

	_, ok = NewPlayer(DefaultChime, nil, &out).(*BellPlayer)
	assert.True(t, ok)
}
