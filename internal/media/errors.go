package media

import "errors"

// CodeMediaNotReady is the well-known error code for "the hosting service has
// not finished processing yet": callers should suggest retrying shortly
// instead of treating the job as dead.
const CodeMediaNotReady = "MEDIA_NOT_READY"

var (
	// ErrMissingIdentifiers is a non-retryable input error: the pipeline was
	// invoked without a recording id or notetaker id. No state is mutated.
	ErrMissingIdentifiers = errors.New("recording id and notetaker id are required")

	// ErrRecordingNotFound means no recording row exists for the given id.
	ErrRecordingNotFound = errors.New("recording not found")

	// ErrCaptureNotFound means the raw capture object is absent from storage.
	// Fatal for this attempt: the recording is moved to error.
	ErrCaptureNotFound = errors.New("raw capture not found in storage")

	// ErrMediaNotReady wraps hosting-side "still preparing" failures so callers
	// can distinguish them from hard errors (see CodeMediaNotReady).
	ErrMediaNotReady = errors.New("media not ready")
)
