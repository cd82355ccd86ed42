package tinkerpen

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no snapshot has been saved under the key.
var ErrNotFound = errors.New("no saved snapshot")

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string // "save" or "load"
	Key string // storage key
	Err error  // underlying error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DeserializeError indicates that stored or shared data is not a Snapshot.
type DeserializeError struct {
	Source string // "storage" or "share"
	Err    error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("invalid %s snapshot: %v", e.Source, e.Err)
}

func (e *DeserializeError) Unwrap() error {
	return e.Err
}

// ClipboardError indicates that a share link could not be copied.
type ClipboardError struct {
	Err error
}

func (e *ClipboardError) Error() string {
	if e.Err == nil {
		return "clipboard write failed"
	}
	return fmt.Sprintf("clipboard write failed: %v", e.Err)
}

func (e *ClipboardError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means no snapshot was saved.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDeserialize reports whether err is a DeserializeError.
func IsDeserialize(err error) bool {
	var de *DeserializeError
	return errors.As(err, &de)
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
