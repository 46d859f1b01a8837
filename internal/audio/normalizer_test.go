package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTranscoder writes a fixed PCM payload or fails.
type fakeTranscoder struct {
	pcm   []byte
	err   error
	calls []string
}

func (f *fakeTranscoder) Transcode(_ context.Context, in, out string) error {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(out, f.pcm, 0o600)
}

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readHeader(t *testing.T, path string) wavHeader {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), WAVHeaderSize)

	var hdr wavHeader
	require.NoError(t, binary.Read(bytes.NewReader(data[:WAVHeaderSize]), binary.LittleEndian, &hdr))
	return hdr
}

func TestNormalize_WritesCanonicalWAV(t *testing.T) {
	ws := newTestWorkspace(t)
	pcm := make([]byte, 3200) // 100 ms of silence
	tr := &fakeTranscoder{pcm: pcm}
	n := NewNormalizer(tr, zerolog.Nop())

	out, err := n.Normalize(context.Background(), ws, []byte("webm-bytes"), ContainerWebM)
	require.NoError(t, err)

	assert.Equal(t, int64(WAVHeaderSize+len(pcm)), out.Size)
	assert.Equal(t, ws.Dir(), filepath.Dir(out.Path))
	require.Len(t, tr.calls, 1)
	assert.Equal(t, "recording.webm", filepath.Base(tr.calls[0]))

	hdr := readHeader(t, out.Path)
	assert.Equal(t, "RIFF", string(hdr.ChunkID[:]))
	assert.Equal(t, "WAVE", string(hdr.Format[:]))
	assert.Equal(t, uint16(1), hdr.AudioFormat)
	assert.Equal(t, uint16(Channels), hdr.NumChannels)
	assert.Equal(t, uint32(SampleRate), hdr.SampleRate)
	assert.Equal(t, uint16(BitsPerSample), hdr.BitsPerSample)
	assert.Equal(t, uint32(SampleRate*2), hdr.ByteRate)
	assert.Equal(t, uint16(2), hdr.BlockAlign)
	assert.Equal(t, uint32(len(pcm)), hdr.Subchunk2Size)
	assert.Equal(t, uint32(36+len(pcm)), hdr.ChunkSize)
}

func TestNormalize_EmptyPCMFails(t *testing.T) {
	ws := newTestWorkspace(t)
	n := NewNormalizer(&fakeTranscoder{pcm: nil}, zerolog.Nop())

	_, err := n.Normalize(context.Background(), ws, []byte("x"), ContainerOgg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversionFailed))
}

func TestNormalize_TranscoderErrorIsWrapped(t *testing.T) {
	ws := newTestWorkspace(t)
	boom := errors.New("invalid data found when processing input")
	n := NewNormalizer(&fakeTranscoder{err: boom}, zerolog.Nop())

	_, err := n.Normalize(context.Background(), ws, []byte("garbage"), ContainerWebM)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversionFailed))
	assert.True(t, errors.Is(err, boom))
}

func TestNormalize_EmptyInputFails(t *testing.T) {
	ws := newTestWorkspace(t)
	tr := &fakeTranscoder{pcm: []byte{1, 2}}
	n := NewNormalizer(tr, zerolog.Nop())

	_, err := n.Normalize(context.Background(), ws, nil, ContainerWebM)
	assert.True(t, errors.Is(err, ErrConversionFailed))
	assert.Empty(t, tr.calls)
}

func TestWorkspace_CloseRemovesEverything(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(ws.Path("recording.webm"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(ws.Path("recording_converted.wav"), []byte("y"), 0o600))

	require.NoError(t, ws.Close())
	_, err = os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(err))

	// second close is a no-op
	assert.NoError(t, ws.Close())
}

func TestWorkspace_PathCannotEscape(t *testing.T) {
	ws := newTestWorkspace(t)
	assert.Equal(t, filepath.Join(ws.Dir(), "passwd"), ws.Path("../../etc/passwd"))
}

func TestDetectContainer(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        Container
	}{
		{"recording.wav", "", ContainerWAV},
		{"clip.OGG", "", ContainerOgg},
		{"blob", "audio/webm;codecs=opus", ContainerWebM},
		{"blob", "audio/mpeg", ContainerMP3},
		{"blob", "audio/x-flac", ContainerFLAC},
		{"", "", ContainerWebM},
		{"notes.txt", "text/plain", ContainerWebM},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectContainer(tt.filename, tt.contentType), "%s %s", tt.filename, tt.contentType)
	}
}

// TestFFmpegTranscoder_EndToEnd resamples a stereo 44.1 kHz tone. It only runs
// when ffmpeg is installed.
func TestFFmpegTranscoder_EndToEnd(t *testing.T) {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	const srcRate = 44100
	frames := srcRate / 2
	pcm := make([]byte, 0, frames*4)
	for i := 0; i < frames; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/srcRate))
		for ch := 0; ch < 2; ch++ {
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
		}
	}
	var src bytes.Buffer
	require.NoError(t, WriteWAV(&src, pcm, srcRate, 2, 16))

	ws := newTestWorkspace(t)
	n := NewNormalizer(NewFFmpegTranscoder(bin), zerolog.Nop())

	out, err := n.Normalize(context.Background(), ws, src.Bytes(), ContainerWAV)
	require.NoError(t, err)

	hdr := readHeader(t, out.Path)
	assert.Equal(t, uint32(SampleRate), hdr.SampleRate)
	assert.Equal(t, uint16(1), hdr.NumChannels)
	// half a second of 16 kHz mono 16-bit audio, give or take resampler padding
	assert.InDelta(t, SampleRate, int(hdr.Subchunk2Size), 1024)
}
