package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Murmur error code.
type ErrorCode string

const (
	// Capture
	ErrPermissionDenied  ErrorCode = "PERMISSION_DENIED"  // 403
	ErrDeviceUnavailable ErrorCode = "DEVICE_UNAVAILABLE" // 503
	ErrNotSupported      ErrorCode = "NOT_SUPPORTED"      // 501

	// Recording
	ErrNoActiveRecording   ErrorCode = "NO_ACTIVE_RECORDING"   // 409
	ErrRecordingInProgress ErrorCode = "RECORDING_IN_PROGRESS" // 409
	ErrEncoderFailure      ErrorCode = "ENCODER_FAILURE"       // 500
	ErrScreenShareEnded    ErrorCode = "SCREEN_SHARE_ENDED"    // 410

	// RAG indexing and generation
	ErrTranscriptUnavailable ErrorCode = "TRANSCRIPT_UNAVAILABLE"  // 422
	ErrEmbeddingBatchFailure ErrorCode = "EMBEDDING_BATCH_FAILURE" // 502
	ErrVectorStoreFailure    ErrorCode = "VECTOR_STORE_FAILURE"    // 502
	ErrGenerationFailure     ErrorCode = "GENERATION_FAILURE"      // 502

	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// MurmurError represents a structured error with code, status, and details.
type MurmurError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Cause is the underlying error, if any. It is already part of Message.
	Cause error
}

// Error implements the error interface.
func (e *MurmurError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *MurmurError) Unwrap() error {
	return e.Cause
}

// withCause appends the cause to msg, keeping it attached for unwrapping.
func withCause(code ErrorCode, status int, msg string, cause error) *MurmurError {
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &MurmurError{
		Code:    code,
		Status:  status,
		Message: msg,
		Cause:   cause,
	}
}

// NewPermissionDenied creates a 403 error for a capture request the user or runtime rejected.
func NewPermissionDenied(source string, cause error) *MurmurError {
	e := withCause(ErrPermissionDenied, 403, fmt.Sprintf("permission denied for %s capture", source), cause)
	e.Details = map[string]any{"source": source}
	return e
}

// NewDeviceUnavailable creates a 503 error when no capture device exists or it cannot be opened.
func NewDeviceUnavailable(source string, cause error) *MurmurError {
	e := withCause(ErrDeviceUnavailable, 503, fmt.Sprintf("%s device unavailable", source), cause)
	e.Details = map[string]any{"source": source}
	return e
}

// NewNotSupported creates a 501 error for capture the runtime cannot provide.
func NewNotSupported(what string, cause error) *MurmurError {
	e := withCause(ErrNotSupported, 501, fmt.Sprintf("%s not supported", what), cause)
	e.Details = map[string]any{"feature": what}
	return e
}

// NewNoActiveRecording creates a 409 error when stop is called without a recording.
func NewNoActiveRecording() *MurmurError {
	return &MurmurError{
		Code:    ErrNoActiveRecording,
		Status:  409,
		Message: "no active recording",
	}
}

// NewRecordingInProgress creates a 409 error when start is called twice.
func NewRecordingInProgress() *MurmurError {
	return &MurmurError{
		Code:    ErrRecordingInProgress,
		Status:  409,
		Message: "a recording is already in progress",
	}
}

// NewEncoderFailure creates a 500 error for encoder errors during recording.
func NewEncoderFailure(cause error) *MurmurError {
	return withCause(ErrEncoderFailure, 500, "recording failed", cause)
}

// NewScreenShareEnded creates the notification sent when the user stops sharing mid-recording.
func NewScreenShareEnded() *MurmurError {
	return &MurmurError{
		Code:    ErrScreenShareEnded,
		Status:  410,
		Message: "screen sharing ended",
	}
}

// NewTranscriptUnavailable creates a 422 error when a meeting has no usable transcript.
func NewTranscriptUnavailable(meetingID string) *MurmurError {
	return &MurmurError{
		Code:    ErrTranscriptUnavailable,
		Status:  422,
		Message: fmt.Sprintf("meeting %s not found or has no transcription", meetingID),
		Details: map[string]any{"meeting_id": meetingID},
	}
}

// NewEmbeddingBatchFailure creates a 502 error for a failed embedding batch.
// batch is 1-based to match progress logs.
func NewEmbeddingBatchFailure(batch, total int, cause error) *MurmurError {
	e := withCause(ErrEmbeddingBatchFailure, 502,
		fmt.Sprintf("failed to generate embeddings (batch %d/%d)", batch, total), cause)
	e.Details = map[string]any{"batch": batch, "total_batches": total}
	return e
}

// NewVectorStoreFailure creates a 502 error for a failed vector index operation.
func NewVectorStoreFailure(op string, cause error) *MurmurError {
	e := withCause(ErrVectorStoreFailure, 502, fmt.Sprintf("failed to %s embeddings", op), cause)
	e.Details = map[string]any{"op": op}
	return e
}

// NewGenerationFailure creates a 502 error for a failed chat completion.
func NewGenerationFailure(what string, cause error) *MurmurError {
	return withCause(ErrGenerationFailure, 502, fmt.Sprintf("failed to generate %s", what), cause)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *MurmurError {
	return &MurmurError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing entity.
func NewNotFound(kind, identifier string) *MurmurError {
	return &MurmurError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *MurmurError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &MurmurError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if any error in err's chain is a MurmurError with the given code.
func Is(err error, code ErrorCode) bool {
	var mErr *MurmurError
	for err != nil {
		if !stderrors.As(err, &mErr) {
			return false
		}
		if mErr.Code == code {
			return true
		}
		err = mErr.Cause
	}
	return false
}

// As returns the outermost MurmurError in err's chain.
func As(err error) (*MurmurError, bool) {
	var mErr *MurmurError
	if stderrors.As(err, &mErr) {
		return mErr, true
	}
	return nil, false
}
