package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pion/opus"
	"github.com/pion/opus/pkg/oggreader"
)

const (
	// targetSampleWidth is the byte width every decoded note is widened to.
	targetSampleWidth = 4
	// opusFrameBytes fits one decoded 20ms mono frame of 16-bit PCM at
	// the decoder's output rate.
	opusFrameBytes = 1920
	// outputRate is the PCM rate the Opus decoder emits. The OpusHead
	// sample-rate field is only the encoder's input hint and never
	// describes the decoded buffer.
	outputRate = 48000
)

// Normalizer decodes Ogg/Opus voice notes into DecodedAudio.
type Normalizer struct {
	logger       *slog.Logger
	decodeFrames func(data []byte) ([]int16, error)
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{
		logger:       log.With(slog.String("service", "audio")),
		decodeFrames: decodeOpus,
	}
}

// Decode runs the full reduction chain: Ogg/Opus container to raw PCM,
// widen to 4-byte samples, re-encode to an uncompressed WAV intermediate,
// then parse that WAV back into samples, rate, and width.
func (n *Normalizer) Decode(data []byte) (DecodedAudio, error) {
	pcm, err := n.decodeFrames(data)
	if err != nil {
		return DecodedAudio{}, err
	}

	samples := widenSamples(pcm)
	wavBytes, err := encodeWAV(samples, outputRate, targetSampleWidth)
	if err != nil {
		return DecodedAudio{}, fmt.Errorf("encode wav intermediate: %w", err)
	}

	decoded, err := parseWAV(wavBytes)
	if err != nil {
		return DecodedAudio{}, fmt.Errorf("parse wav intermediate: %w", err)
	}
	n.logger.Debug("decoded voice note",
		slog.Int("samples", len(decoded.Samples)),
		slog.Int("sample_rate", decoded.SampleRate),
		slog.Int("sample_width", decoded.SampleWidth))
	return decoded, nil
}

// EncodeWAV renders decoded audio back into a WAV container, the form the
// transcription endpoint accepts.
func (n *Normalizer) EncodeWAV(decoded DecodedAudio) ([]byte, error) {
	return encodeWAV(decoded.Samples, decoded.SampleRate, decoded.SampleWidth)
}

// opusFrameDecoder is the slice of the Opus decoder the page walk needs.
type opusFrameDecoder interface {
	Decode(in, out []byte) (opus.Bandwidth, bool, error)
}

// decodeOpus walks the Ogg pages and decodes every Opus segment to 16-bit
// mono PCM at outputRate.
func decodeOpus(data []byte) ([]int16, error) {
	ogg, _, err := oggreader.NewWith(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	decoder := opus.NewDecoder()
	var pcm []int16
	for {
		segments, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		if len(segments) > 0 && bytes.HasPrefix(segments[0], []byte("OpusTags")) {
			continue
		}
		pcm, err = decodeSegments(&decoder, segments, pcm)
		if err != nil {
			return nil, err
		}
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: stream holds no audio frames", ErrUnsupportedFormat)
	}
	return pcm, nil
}

// decodeSegments appends the PCM of every segment on one page. Each
// segment decodes into a zero-filled buffer: bytes the decoder leaves
// untouched for short or narrow frames must read as silence, never as the
// previous frame.
func decodeSegments(dec opusFrameDecoder, segments [][]byte, pcm []int16) ([]int16, error) {
	for _, segment := range segments {
		if len(segment) == 0 {
			continue
		}
		frame := make([]byte, opusFrameBytes)
		if _, _, err := dec.Decode(segment, frame); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		for i := 0; i+1 < len(frame); i += 2 {
			pcm = append(pcm, int16(uint16(frame[i])|uint16(frame[i+1])<<8))
		}
	}
	return pcm, nil
}

// widenSamples re-quantizes 16-bit samples to the 4-byte width expected
// downstream, preserving amplitude scale.
func widenSamples(pcm []int16) []int {
	out := make([]int, len(pcm))
	for i, s := range pcm {
		out[i] = int(int32(s) << 16)
	}
	return out
}
