// Package audio turns browser recordings into the canonical PCM WAV accepted
// by the pronunciation assessment service, inside a per-request workspace.
package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
)

// ErrConversionFailed is returned for any recording that could not be turned
// into canonical audio.
var ErrConversionFailed = errors.New("audio conversion failed")

const (
	rawPCMName    = "recording.pcm"
	canonicalName = "recording_converted.wav"
)

// Canonical is a normalized recording on disk.
type Canonical struct {
	Path string
	Size int64
}

// Transcoder decodes inputPath and writes raw signed 16-bit little-endian
// mono PCM at 16 kHz to outputPath.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// FFmpegTranscoder shells out to ffmpeg.
type FFmpegTranscoder struct {
	Binary string
}

// NewFFmpegTranscoder returns a transcoder using the given ffmpeg binary.
func NewFFmpegTranscoder(binary string) *FFmpegTranscoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTranscoder{Binary: binary}
}

// Transcode implements Transcoder.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, t.Binary,
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(SampleRate),
		"-ac", fmt.Sprint(Channels),
		"-f", "s16le",
		"-y",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %s: %w", string(output), err)
	}
	return nil
}

// Normalizer converts uploads into Canonical audio.
type Normalizer struct {
	transcoder Transcoder
	log        zerolog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(transcoder Transcoder, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		transcoder: transcoder,
		log:        log,
	}
}

// Normalize stores data in ws, decodes it and writes a canonical WAV next to
// it. Every failure wraps ErrConversionFailed; nothing is cleaned up here,
// the workspace owner releases all files.
func (n *Normalizer) Normalize(ctx context.Context, ws *Workspace, data []byte, container Container) (*Canonical, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty recording", ErrConversionFailed)
	}
	if container == "" {
		container = ContainerWebM
	}

	inputPath := ws.Path("recording." + string(container))
	if err := os.WriteFile(inputPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("%w: save upload: %w", ErrConversionFailed, err)
	}

	pcmPath := ws.Path(rawPCMName)
	if err := n.transcoder.Transcode(ctx, inputPath, pcmPath); err != nil {
		n.log.Error().Err(err).Str("container", string(container)).Msg("Audio conversion error")
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	pcm, err := os.ReadFile(pcmPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read pcm: %w", ErrConversionFailed, err)
	}

	wavPath := ws.Path(canonicalName)
	if err := writeCanonicalFile(wavPath, pcm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	info, err := os.Stat(wavPath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat output: %w", ErrConversionFailed, err)
	}
	if info.Size() <= WAVHeaderSize {
		n.log.Warn().Int64("bytes", info.Size()).Msg("Audio conversion produced empty or invalid file")
		return nil, fmt.Errorf("%w: output has no audio payload", ErrConversionFailed)
	}

	n.log.Debug().
		Int64("bytes", info.Size()).
		Str("container", string(container)).
		Msg("Audio converted successfully")

	return &Canonical{Path: wavPath, Size: info.Size()}, nil
}

func writeCanonicalFile(path string, pcm []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := WriteCanonicalWAV(bw, pcm); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush wav: %w", err)
	}
	return f.Close()
}
