package audioframe

import (
	"fmt"
	"time"

	"layeh.com/gopus"

	"github.com/voxrun/assistant/internal/audio"
)

// OpusFrameSize is the number of samples per channel gopus expects per
// Decode call at 20ms/48kHz, the common Opus frame duration.
const OpusFrameSize = 960

// OpusDecoder turns Opus-encoded packets into the fixed-duration PCM frames
// internal/audio.Processor expects. One decoder instance is not safe for
// concurrent use; create one per stream.
type OpusDecoder struct {
	dec      *gopus.Decoder
	channels int
}

// NewOpusDecoder builds a decoder for mono or stereo Opus at sampleRate.
// Stereo input is downmixed to mono in Decode, matching
// internal/audio.Frame's mono-only contract.
func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	dec, err := gopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("audioframe: new opus decoder: %w", err)
	}
	return &OpusDecoder{dec: dec, channels: channels}, nil
}

// Decode decodes one Opus packet into an audio.Frame timestamped at ts. FEC
// concealment for a lost packet can be requested by passing a nil packet
// with fec set, per gopus.Decoder.Decode's own contract.
func (d *OpusDecoder) Decode(packet []byte, fec bool, ts time.Time) (audio.Frame, error) {
	pcm, err := d.dec.Decode(packet, OpusFrameSize, fec)
	if err != nil {
		return audio.Frame{}, fmt.Errorf("audioframe: opus decode: %w", err)
	}
	return audio.Frame{Samples: downmixInt16(pcm, d.channels), Timestamp: ts}, nil
}

// downmixInt16 converts interleaved int16 PCM to normalized mono float32,
// averaging channels.
func downmixInt16(pcm []int16, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(pcm))
		for i, v := range pcm {
			out[i] = float32(v) / 32768.0
		}
		return out
	}
	frames := len(pcm) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(pcm[i*channels+ch]) / 32768.0
		}
		out[i] = sum / float32(channels)
	}
	return out
}
