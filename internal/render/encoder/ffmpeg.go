package encoder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Target geometry for the rendered vertical video.
const (
	outputWidth  = 1080
	outputHeight = 1920
)

// FFmpeg invokes the ffmpeg binary to render a 1080x1920 H.264/AAC MP4
// from a still image plus an audio track, optionally overlaying a caption.
type FFmpeg struct {
	binary string
	runner *Runner
}

// Option configures the ffmpeg encoder.
type Option func(*FFmpeg)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(f *FFmpeg) {
		if binary != "" {
			f.binary = binary
		}
	}
}

// NewFFmpeg constructs an ffmpeg encoder with the given encode timeout.
func NewFFmpeg(timeout time.Duration, opts ...Option) *FFmpeg {
	f := &FFmpeg{
		binary: "ffmpeg",
		runner: NewRunner(timeout),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Encode runs the encoder for one job.
func (f *FFmpeg) Encode(ctx context.Context, spec Spec) error {
	if spec.ImagePath == "" {
		return errors.New("image path required")
	}
	if spec.AudioPath == "" {
		return errors.New("audio path required")
	}
	if spec.OutputPath == "" {
		return errors.New("output path required")
	}

	return f.runner.Run(ctx, f.binary, buildArgs(spec))
}

// buildArgs assembles the ffmpeg argument vector. The still image is looped
// for the duration of the audio track; -shortest stops the video stream
// with the audio, and +faststart relocates the moov atom so players can
// begin streaming before the download completes.
func buildArgs(spec Spec) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-loop", "1",
		"-i", spec.ImagePath,
		"-i", spec.AudioPath,
		"-vf", buildFilter(spec.Caption),
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-r", "30",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		spec.OutputPath,
	}
}

// buildFilter scales and pads the image into the vertical frame and appends
// a drawtext overlay when a caption is present.
func buildFilter(caption string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scale=%d:%d:force_original_aspect_ratio=decrease", outputWidth, outputHeight)
	fmt.Fprintf(&b, ",pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", outputWidth, outputHeight)

	if caption = strings.TrimSpace(caption); caption != "" {
		b.WriteString(",drawtext=text=")
		b.WriteString(escapeDrawText(caption))
		b.WriteString(":fontcolor=white:fontsize=64:borderw=3:bordercolor=black")
		b.WriteString(":x=(w-text_w)/2:y=h-text_h-160")
	}
	return b.String()
}

// escapeDrawText escapes caption text for ffmpeg's filtergraph syntax.
// Arguments are already passed as a vector so no shell escaping applies;
// only the filter metacharacters need neutralizing.
func escapeDrawText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`,`, `\,`,
		`;`, `\;`,
		`[`, `\[`,
		`]`, `\]`,
		`%`, `\%`,
		"\n", " ",
		"\r", " ",
	)
	return r.Replace(s)
}
