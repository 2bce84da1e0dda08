package encoder

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"slidecast/internal/pkg/errors"
)

// outputTailLimit bounds captured diagnostics so a verbose encoder failure
// cannot grow memory without bound.
const outputTailLimit = 4096

var commandContext = exec.CommandContext

// Runner executes an external command with a bounded wall-clock timeout.
// Arguments are passed as a vector; nothing is ever interpreted by a shell.
type Runner struct {
	timeout time.Duration
}

// NewRunner creates a runner with the given per-invocation timeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Runner{timeout: timeout}
}

// Run executes name with args. On timeout the child process is terminated
// and a TIMEOUT error is returned; a non-zero exit returns ENCODE_FAILED
// carrying the tail of the combined stdout/stderr stream.
func (r *Runner) Run(ctx context.Context, name string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := commandContext(ctx, name, args...)
	// Sharing one writer lets os/exec serialize the two streams itself.
	output := &tailBuffer{limit: outputTailLimit}
	cmd.Stdout = output
	cmd.Stderr = output

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return errors.Timeout(name).
			WithField("timeout", r.timeout.String())
	}

	msg := fmt.Sprintf("%s failed", name)
	if exitErr, ok := err.(*exec.ExitError); ok {
		msg = fmt.Sprintf("%s exited with code %d", name, exitErr.ExitCode())
	}
	if tail := output.String(); tail != "" {
		msg += ": " + tail
	}
	return errors.WrapWithCode(err, errors.CodeEncodeFailed, "encoder.run", msg)
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.limit {
		b.buf = b.buf[len(b.buf)-b.limit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return strings.TrimSpace(string(b.buf))
}
