// Package audioframe converts between the normalized float32 PCM frames
// internal/audio's VAD state machine operates on and the 16-bit
// little-endian PCM byte streams the provider packages (stt, tts) speak,
// plus an Opus decode helper for transports that hand the core Opus frames.
package audioframe

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultSampleRate is the sample rate assumed for PCM produced or consumed
// by this package when no transport-specific rate is known. 16 kHz mono is
// the common denominator across the wired STT/TTS backends.
const DefaultSampleRate = 16000

// Float32ToPCM16LE converts samples normalized to [-1, 1] into 16-bit signed
// little-endian PCM bytes, clamping out-of-range values rather than
// wrapping.
func Float32ToPCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(v))
	}
	return out
}

// PCM16LEToFloat32 converts 16-bit signed little-endian PCM bytes into
// samples normalized to [-1, 1]. A trailing odd byte is silently ignored.
func PCM16LEToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(v) / 32768.0
	}
	return samples
}

// WriteWAV wraps 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container and writes it to w.
func WriteWAV(w io.Writer, pcm []byte, sampleRate, channels int) error {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("audioframe: write wav header: %w", err)
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("audioframe: write wav data: %w", err)
	}
	return nil
}
