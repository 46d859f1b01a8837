package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Canonical PCM format accepted by the assessment service.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16

	// WAVHeaderSize is the size of a plain RIFF/WAVE header with a single
	// fmt chunk and no extensions.
	WAVHeaderSize = 44
)

// wavHeader mirrors the 44-byte canonical RIFF layout.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

func newWAVHeader(sampleRate, channels, bitsPerSample int, dataLen uint32) wavHeader {
	blockAlign := channels * bitsPerSample / 8
	return wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataLen,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // linear PCM
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(bitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataLen,
	}
}

// WriteWAV writes pcm wrapped in a RIFF/WAVE header describing the given
// format. pcm must already be interleaved little-endian samples.
func WriteWAV(w io.Writer, pcm []byte, sampleRate, channels, bitsPerSample int) error {
	if uint64(len(pcm)) > math.MaxUint32-36 {
		return fmt.Errorf("pcm payload too large for WAV: %d bytes", len(pcm))
	}
	hdr := newWAVHeader(sampleRate, channels, bitsPerSample, uint32(len(pcm)))
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("write wav payload: %w", err)
	}
	return nil
}

// WriteCanonicalWAV writes pcm as 16 kHz mono 16-bit WAV.
func WriteCanonicalWAV(w io.Writer, pcm []byte) error {
	return WriteWAV(w, pcm, SampleRate, Channels, BitsPerSample)
}
