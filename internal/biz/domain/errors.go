package domain

import "errors"

var (
	// ErrStorageUnavailable is matched by every failure of the message store
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrAITransport is returned when the AI backend cannot be reached or rejects the request
	ErrAITransport = errors.New("ai transport error")

	// ErrAITimeout is returned when the AI call exceeds its deadline
	ErrAITimeout = errors.New("ai timeout")

	// ErrUploadActivationTimeout is returned when an uploaded file never becomes active
	ErrUploadActivationTimeout = errors.New("upload activation timeout")

	// ErrAIUnavailable is returned when an instance runs without an AI client
	ErrAIUnavailable = errors.New("ai client not configured")
)

// StorageError wraps a failed storage operation
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes every StorageError match ErrStorageUnavailable
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// AIError wraps a failed AI call with its classification
type AIError struct {
	Kind error // One of ErrAITransport, ErrAITimeout, ErrUploadActivationTimeout
	Err  error
}

func (e *AIError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *AIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
