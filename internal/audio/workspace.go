package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Workspace is a per-request scratch directory holding the raw upload and
// every file derived from it. Close removes the directory and everything in
// it; it is safe to call more than once.
type Workspace struct {
	dir  string
	once sync.Once
	err  error
}

// NewWorkspace creates a fresh directory under baseDir (os.TempDir when empty).
func NewWorkspace(baseDir string) (*Workspace, error) {
	dir, err := os.MkdirTemp(baseDir, "attempt-*")
	if err != nil {
		return nil, fmt.Errorf("create audio workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the location of name inside the workspace. Path separators in
// name are stripped so callers cannot escape the directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// Close releases the workspace.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		w.err = os.RemoveAll(w.dir)
	})
	return w.err
}

// Container is the declared container/codec of an uploaded recording.
type Container string

const (
	ContainerWebM Container = "webm"
	ContainerOgg  Container = "ogg"
	ContainerWAV  Container = "wav"
	ContainerMP3  Container = "mp3"
	ContainerMP4  Container = "mp4"
	ContainerM4A  Container = "m4a"
	ContainerAAC  Container = "aac"
	ContainerFLAC Container = "flac"
	ContainerOpus Container = "opus"
)

var knownContainers = map[string]Container{
	"webm": ContainerWebM,
	"weba": ContainerWebM,
	"ogg":  ContainerOgg,
	"oga":  ContainerOgg,
	"wav":  ContainerWAV,
	"wave": ContainerWAV,
	"mp3":  ContainerMP3,
	"mpeg": ContainerMP3,
	"mp4":  ContainerMP4,
	"m4a":  ContainerM4A,
	"aac":  ContainerAAC,
	"flac": ContainerFLAC,
	"opus": ContainerOpus,
}

// DetectContainer derives the container from the upload's file name, falling
// back to its content type and finally to WebM, which is what browser
// recorders produce.
func DetectContainer(filename, contentType string) Container {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if c, ok := knownContainers[ext]; ok {
		return c
	}

	// audio/webm;codecs=opus -> webm
	ct := strings.ToLower(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if i := strings.IndexByte(ct, '/'); i >= 0 {
		sub := strings.TrimPrefix(ct[i+1:], "x-")
		if c, ok := knownContainers[sub]; ok {
			return c
		}
	}
	return ContainerWebM
}
