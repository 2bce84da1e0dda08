package render

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"slidecast/internal/pkg/errors"
)

// Manager allocates per-job scratch and output paths under a single data
// root. Every path is keyed off the job id, so concurrent jobs never
// collide and no filesystem locking is needed.
type Manager struct {
	root string
}

// NewManager creates a workspace manager rooted at dir.
func NewManager(root string) *Manager {
	return &Manager{root: filepath.Clean(root)}
}

// Root returns the data root directory.
func (m *Manager) Root() string { return m.root }

// ScratchDir returns the per-job input scratch directory.
func (m *Manager) ScratchDir(jobID string) string {
	return filepath.Join(m.root, "scratch", jobID)
}

// OutputDir returns the directory holding finished artifacts.
func (m *Manager) OutputDir() string {
	return filepath.Join(m.root, "videos")
}

// OutputPath returns the artifact path for a job id. The path is derivable
// solely from the id.
func (m *Manager) OutputPath(jobID string) string {
	return filepath.Join(m.OutputDir(), jobID+".mp4")
}

// EnsureDirs creates the scratch and output trees.
func (m *Manager) EnsureDirs() error {
	for _, dir := range []string{filepath.Join(m.root, "scratch"), m.OutputDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.IO(err, "workspace.ensure", "failed to create data directory")
		}
	}
	return nil
}

// Workspace holds the materialized input paths and the output path for one
// job. Inputs are always removed after the job finishes; the output is
// removed only on failure.
type Workspace struct {
	JobID      string
	Dir        string
	ImagePath  string
	AudioPath  string
	OutputPath string
}

// Materialize decodes the base64 payloads, picks file extensions from the
// leading magic bytes (caller-supplied extensions are never trusted), and
// writes the inputs into the job's scratch directory.
func (m *Manager) Materialize(jobID, imageB64, audioB64 string) (*Workspace, error) {
	image, err := DecodePayload("image", imageB64)
	if err != nil {
		return nil, err
	}
	audio, err := DecodePayload("audio", audioB64)
	if err != nil {
		return nil, err
	}

	imageExt, err := sniffImageExt(image)
	if err != nil {
		return nil, err
	}
	audioExt := sniffAudioExt(audio)

	dir := m.ScratchDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.IO(err, "workspace.allocate", "failed to create scratch directory")
	}

	ws := &Workspace{
		JobID:      jobID,
		Dir:        dir,
		ImagePath:  filepath.Join(dir, "image"+imageExt),
		AudioPath:  filepath.Join(dir, "audio"+audioExt),
		OutputPath: m.OutputPath(jobID),
	}

	if err := writeInput(ws.ImagePath, image); err != nil {
		ws.CleanupInputs()
		return nil, err
	}
	if err := writeInput(ws.AudioPath, audio); err != nil {
		ws.CleanupInputs()
		return nil, err
	}
	return ws, nil
}

// CleanupInputs removes the job's scratch directory. Safe to call on every
// exit path; missing files are not an error.
func (ws *Workspace) CleanupInputs() {
	_ = os.RemoveAll(ws.Dir)
}

// RemoveOutput deletes the output artifact, if any. Called on failure only;
// successful outputs are reclaimed by the janitor.
func (ws *Workspace) RemoveOutput() {
	_ = os.Remove(ws.OutputPath)
}

func writeInput(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.IO(err, "workspace.write", "failed to write input file")
	}
	return nil
}

// DecodePayload strips an optional data-URI prefix and base64-decodes a
// caller-supplied payload.
func DecodePayload(field, payload string) ([]byte, error) {
	raw := strings.TrimSpace(payload)
	if i := strings.IndexByte(raw, ','); i >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		// Some clients send the URL-safe alphabet.
		data, err = base64.URLEncoding.DecodeString(raw)
	}
	if err != nil {
		return nil, errors.Decode(field, "invalid base64 "+field+" payload")
	}
	if len(data) == 0 {
		return nil, errors.Decode(field, "empty "+field+" payload")
	}
	return data, nil
}

// EstimateDecodedLen estimates the decoded byte count of a base64 payload
// without decoding it. Used for the synchronous intake size floor.
func EstimateDecodedLen(payload string) int64 {
	raw := strings.TrimSpace(payload)
	if i := strings.IndexByte(raw, ','); i >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[i+1:]
	}
	return int64(len(raw)) * 3 / 4
}

var (
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// sniffImageExt inspects leading magic bytes to pick the image extension.
func sniffImageExt(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return ".png", nil
	case bytes.HasPrefix(data, jpegMagic):
		return ".jpg", nil
	default:
		return "", errors.Decode("image", "unrecognized image format (expected PNG or JPEG)")
	}
}

// sniffAudioExt inspects leading magic bytes to pick the audio extension.
// Unknown containers fall back to .mp3, the dominant caller format.
func sniffAudioExt(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("ID3")):
		return ".mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// Bare MPEG audio frame sync
		return ".mp3"
	case bytes.HasPrefix(data, []byte("RIFF")):
		return ".wav"
	case bytes.HasPrefix(data, []byte("OggS")):
		return ".ogg"
	case bytes.HasPrefix(data, []byte("fLaC")):
		return ".flac"
	default:
		return ".mp3"
	}
}
