package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestMurmurError_Error(t *testing.T) {
	err := NewNotFound("meeting", "01ABC")
	want := "NOT_FOUND: meeting not found: 01ABC"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestConstructorStatus(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		name   string
		err    *MurmurError
		code   ErrorCode
		status int
	}{
		{"permission denied", NewPermissionDenied("microphone", cause), ErrPermissionDenied, 403},
		{"device unavailable", NewDeviceUnavailable("microphone", nil), ErrDeviceUnavailable, 503},
		{"not supported", NewNotSupported("display capture", nil), ErrNotSupported, 501},
		{"no active recording", NewNoActiveRecording(), ErrNoActiveRecording, 409},
		{"recording in progress", NewRecordingInProgress(), ErrRecordingInProgress, 409},
		{"encoder failure", NewEncoderFailure(cause), ErrEncoderFailure, 500},
		{"screen share ended", NewScreenShareEnded(), ErrScreenShareEnded, 410},
		{"transcript unavailable", NewTranscriptUnavailable("m1"), ErrTranscriptUnavailable, 422},
		{"embedding batch", NewEmbeddingBatchFailure(2, 3, cause), ErrEmbeddingBatchFailure, 502},
		{"vector store", NewVectorStoreFailure("store", cause), ErrVectorStoreFailure, 502},
		{"generation", NewGenerationFailure("response", cause), ErrGenerationFailure, 502},
		{"invalid request", NewInvalidRequest("bad"), ErrInvalidRequest, 400},
		{"not found", NewNotFound("meeting", "x"), ErrNotFound, 404},
		{"internal", NewInternal(cause), ErrInternal, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
		})
	}
}

func TestCauseAppendedToMessage(t *testing.T) {
	cause := fmt.Errorf("rate limited")
	err := NewEmbeddingBatchFailure(2, 5, cause)

	if !strings.HasSuffix(err.Message, ": rate limited") {
		t.Errorf("Message = %q, want cause appended", err.Message)
	}
	if !strings.Contains(err.Message, "batch 2/5") {
		t.Errorf("Message = %q, want batch position", err.Message)
	}
	if err.Details["batch"] != 2 {
		t.Errorf("Details[batch] = %v, want 2", err.Details["batch"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))
		if err.Message != "database connection failed" {
			t.Errorf("Message = %q, want %q", err.Message, "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)
		if err.Message != "internal error" {
			t.Errorf("Message = %q, want %q", err.Message, "internal error")
		}
		if err.Unwrap() != nil {
			t.Error("Unwrap() should be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("meeting", "x"), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("meeting", "x"), ErrInternal) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if Is(fmt.Errorf("plain error"), ErrNotFound) {
			t.Error("Is() = true, want false for non-MurmurError")
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("ask: %w", NewGenerationFailure("response", nil))
		if !Is(wrapped, ErrGenerationFailure) {
			t.Error("Is() = false, want true for wrapped MurmurError")
		}
	})

	t.Run("nested cause", func(t *testing.T) {
		inner := NewPermissionDenied("microphone", nil)
		outer := NewInternal(inner)
		if !Is(outer, ErrPermissionDenied) {
			t.Error("Is() = false, want true for MurmurError in cause chain")
		}
	})
}

func TestAs(t *testing.T) {
	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As() ok = true for plain error")
	}
	mErr, ok := As(fmt.Errorf("wrap: %w", NewNoActiveRecording()))
	if !ok || mErr.Code != ErrNoActiveRecording {
		t.Errorf("As() = %v, %v; want NO_ACTIVE_RECORDING", mErr, ok)
	}
}
