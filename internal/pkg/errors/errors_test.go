package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewCapturesCodeAndStack(t *testing.T) {
	err := New(CodeDecode, "invalid base64 image payload")

	if err.Code != CodeDecode {
		t.Errorf("expected %s, got %s", CodeDecode, err.Code)
	}
	if err.Message != "invalid base64 image payload" {
		t.Errorf("unexpected message: %s", err.Message)
	}
	if len(err.Stack) == 0 {
		t.Error("expected stack frames to be captured")
	}
	if !strings.Contains(err.StackTrace(), "errors_test.go") {
		t.Errorf("expected trace to include the caller, got:\n%s", err.StackTrace())
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			"message only",
			New(CodeValidation, "Missing audio data"),
			[]string{"VALIDATION_ERROR", "Missing audio data"},
		},
		{
			"with op",
			&Error{Code: CodeEncodeFailed, Message: "ffmpeg exited with code 1", Op: "encoder.run"},
			[]string{"encoder.run", "ENCODE_FAILED", "exited with code 1"},
		},
		{
			"with cause",
			&Error{Code: CodeIO, Message: "failed to write input file", Err: fmt.Errorf("no space left on device")},
			[]string{"failed to write input file", "no space left on device"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(s, want) {
					t.Errorf("expected %q in %q", want, s)
				}
			}
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("plain cause classifies internal", func(t *testing.T) {
		cause := fmt.Errorf("connection reset")
		err := Wrap(cause, "workspace.write", "write failed")

		if err.Code != CodeInternal {
			t.Errorf("expected %s, got %s", CodeInternal, err.Code)
		}
		if err.Op != "workspace.write" {
			t.Errorf("unexpected op: %s", err.Op)
		}
		if errors.Unwrap(err) != cause {
			t.Error("expected cause to unwrap")
		}
	})

	t.Run("coded cause keeps its code and fields", func(t *testing.T) {
		cause := Decode("audio", "invalid base64 audio payload")
		err := Wrap(cause, "workspace.materialize", "failed to stage inputs")

		if err.Code != CodeDecode {
			t.Errorf("expected inner code preserved, got %s", err.Code)
		}
		if err.Fields["field"] != "audio" {
			t.Errorf("expected inner fields preserved, got %v", err.Fields)
		}
	})

	t.Run("nil cause", func(t *testing.T) {
		if Wrap(nil, "op", "msg") != nil {
			t.Error("Wrap(nil) must return nil")
		}
		if WrapWithCode(nil, CodeIO, "op", "msg") != nil {
			t.Error("WrapWithCode(nil) must return nil")
		}
	})

	t.Run("WrapWithCode overrides", func(t *testing.T) {
		err := WrapWithCode(fmt.Errorf("signal: killed"), CodeTimeout, "encoder.run", "encode aborted")
		if err.Code != CodeTimeout {
			t.Errorf("expected forced code, got %s", err.Code)
		}
	})
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, 400},
		{CodeDecode, 400},
		{CodeNotFound, 404},
		{CodeResourceExhaust, 429},
		{CodeUnavailable, 503},
		{CodeTimeout, 504},
		{CodeInternal, 500},
		{CodeIO, 500},
		{CodeEncodeFailed, 500},
		{CodeArtifactInvalid, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "x").HTTPStatus(); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}

	if got := GetHTTPStatus(fmt.Errorf("plain")); got != 500 {
		t.Errorf("plain errors must map to 500, got %d", got)
	}
}

func TestIsMatchesOnCode(t *testing.T) {
	err := ArtifactInvalid("output file below minimum size")

	if !errors.Is(err, &Error{Code: CodeArtifactInvalid}) {
		t.Error("expected match on same code")
	}
	if errors.Is(err, &Error{Code: CodeTimeout}) {
		t.Error("expected no match on different code")
	}
}

func TestFieldExtraction(t *testing.T) {
	err := ArtifactInvalid("output file below minimum size").
		WithField("size_bytes", int64(42)).
		WithField("min_bytes", int64(102400))

	fields := GetFields(err)
	if fields["size_bytes"] != int64(42) || fields["min_bytes"] != int64(102400) {
		t.Errorf("unexpected fields: %v", fields)
	}

	// Fields survive a layer of wrapping.
	wrapped := fmt.Errorf("render: %w", err)
	if GetFields(wrapped)["size_bytes"] != int64(42) {
		t.Error("expected fields through wrapped chain")
	}
	if GetFields(fmt.Errorf("plain")) != nil {
		t.Error("expected nil fields for plain error")
	}
}

func TestCodeExtraction(t *testing.T) {
	if got := GetCode(Timeout("ffmpeg")); got != CodeTimeout {
		t.Errorf("expected %s, got %s", CodeTimeout, got)
	}
	if got := GetCode(fmt.Errorf("plain")); got != CodeInternal {
		t.Errorf("plain errors classify internal, got %s", got)
	}
	deep := fmt.Errorf("outer: %w", EncodeFailed("exit 1"))
	if !IsCode(deep, CodeEncodeFailed) {
		t.Error("expected code through wrapped chain")
	}
}

func TestPredicates(t *testing.T) {
	if !IsNotFound(NotFound("job", "j1")) {
		t.Error("IsNotFound")
	}
	if !IsValidation(ValidationField("image", "Missing image data")) {
		t.Error("IsValidation")
	}
	if !IsTimeout(Timeout("encode")) {
		t.Error("IsTimeout")
	}
	if IsTimeout(ValidationField("audio", "Missing audio data")) {
		t.Error("IsTimeout must not match validation errors")
	}
}

func TestDomainConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		code Code
	}{
		{"decode", Decode("image", "unrecognized image format"), CodeDecode},
		{"io", IO(fmt.Errorf("disk full"), "workspace.write", "write failed"), CodeIO},
		{"encode failed", EncodeFailed("ffmpeg exited with code 1"), CodeEncodeFailed},
		{"artifact invalid", ArtifactInvalid("output file was not created"), CodeArtifactInvalid},
		{"internalf", Internalf("job already exists: %s", "j1"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, tt.err.Code)
			}
		})
	}

	if Decode("image", "x").Fields["field"] != "image" {
		t.Error("expected field annotation on decode errors")
	}
}
