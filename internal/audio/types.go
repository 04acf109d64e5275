// Package audio converts compressed voice notes into decoded waveforms a
// transcription engine can consume.
package audio

// DecodedAudio is an uncompressed waveform: raw samples plus the format
// needed to reconstruct a playable container.
type DecodedAudio struct {
	// Samples holds one sample per entry, mono.
	Samples []int
	// SampleRate in Hz.
	SampleRate int
	// SampleWidth is the byte width of one sample after re-quantization.
	SampleWidth int
}
