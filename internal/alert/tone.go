// Package alert plays the short two-tone chime announcing a new booking.
package alert

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// Tone is one sine note of the chime.
type Tone struct {
	Frequency float64
	Start     time.Duration
	Duration  time.Duration
}

// Chime describes the alert sound.
type Chime struct {
	SampleRate int
	Tones      []Tone
	// Gain falls exponentially from StartGain to EndGain over each tone.
	StartGain float64
	EndGain   float64
}

// DefaultChime is two rising notes, the second starting 200ms after the first.
var DefaultChime = Chime{
	SampleRate: 22050,
	Tones: []Tone{
		{Frequency: 880, Start: 0, Duration: 500 * time.Millisecond},
		{Frequency: 1320, Start: 200 * time.Millisecond, Duration: 500 * time.Millisecond},
	},
	StartGain: 0.3,
	EndGain:   0.01,
}

// Length is the time from the first tone's start to the last tone's end.
func (c Chime) Length() time.Duration {
	var end time.Duration
	for _, t := range c.Tones {
		if e := t.Start + t.Duration; e > end {
			end = e
		}
	}
	return end
}

// Samples renders the chime as mono float samples in [-1, 1].
func (c Chime) Samples() []float64 {
	n := int(math.Round(c.Length().Seconds() * float64(c.SampleRate)))
	out := make([]float64, n)
	rate := float64(c.SampleRate)

	for _, tone := range c.Tones {
		first := int(math.Round(tone.Start.Seconds() * rate))
		count := int(math.Round(tone.Duration.Seconds() * rate))
		for i := 0; i < count && first+i < n; i++ {
			t := float64(i) / rate
			out[first+i] += c.gain(t, tone.Duration.Seconds()) * math.Sin(2*math.Pi*tone.Frequency*t)
		}
	}

	for i, s := range out {
		out[i] = math.Max(-1, math.Min(1, s))
	}
	return out
}

func (c Chime) gain(t, length float64) float64 {
	if length <= 0 || c.StartGain <= 0 || c.EndGain <= 0 {
		return c.StartGain
	}
	return c.StartGain * math.Pow(c.EndGain/c.StartGain, t/length)
}

// WAV encodes the chime as a 16-bit mono PCM WAV file.
func (c Chime) WAV() []byte {
	samples := c.Samples()
	dataLen := len(samples) * 2

	var buf bytes.Buffer
	buf.Grow(44 + dataLen)

	write := func(v interface{}) {
		// writes to a bytes.Buffer cannot fail
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}

	buf.WriteString("RIFF")
	write(uint32(36 + dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1)) // PCM
	write(uint16(1)) // mono
	write(uint32(c.SampleRate))
	write(uint32(c.SampleRate * 2))
	write(uint16(2))
	write(uint16(16))

	buf.WriteString("data")
	write(uint32(dataLen))
	for _, s := range samples {
		write(int16(math.Round(s * math.MaxInt16)))
	}

	return buf.Bytes()
}
