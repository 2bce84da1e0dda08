// Package encoder wraps the external media encoder invoked as a child
// process to multiplex a still image and an audio track into a video.
package encoder

import "context"

// Spec describes one encode invocation.
type Spec struct {
	ImagePath  string
	AudioPath  string
	OutputPath string
	// Caption is optional overlay text rendered onto the video.
	Caption string
}

// Encoder defines encoding behaviour. The production implementation shells
// out to ffmpeg; tests substitute a fake.
type Encoder interface {
	Encode(ctx context.Context, spec Spec) error
}
