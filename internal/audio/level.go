package audio

import (
	"encoding/binary"
	"math"
)

// Level returns the RMS of little-endian s16 PCM normalized to [0, 1].
// A trailing odd byte is ignored.
func Level(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768.0
		sum += sample * sample
	}
	return math.Sqrt(sum / float64(n))
}
