package audio

import (
	"bytes"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// encodeWAV writes mono samples into an in-memory WAV container.
func encodeWAV(samples []int, sampleRate, sampleWidth int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to encode")
	}
	ws := &memWriteSeeker{}
	enc := wav.NewEncoder(ws, sampleRate, sampleWidth*8, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: sampleWidth * 8,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("write pcm: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return ws.Bytes(), nil
}

// parseWAV extracts the sample buffer, rate, and width from a WAV
// container.
func parseWAV(data []byte) (DecodedAudio, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return DecodedAudio{}, fmt.Errorf("read pcm: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return DecodedAudio{}, fmt.Errorf("empty pcm buffer")
	}
	return DecodedAudio{
		Samples:     buf.Data,
		SampleRate:  buf.Format.SampleRate,
		SampleWidth: int(dec.BitDepth) / 8,
	}, nil
}

// memWriteSeeker is the minimal io.WriteSeeker the wav encoder needs,
// backed by a byte slice. The encoder seeks backwards to patch chunk
// sizes on Close.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		grown := make([]byte, need)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = m.pos + int(offset)
	case io.SeekEnd:
		next = len(m.buf) + int(offset)
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position %d", next)
	}
	m.pos = next
	return int64(next), nil
}

func (m *memWriteSeeker) Bytes() []byte {
	return m.buf
}
