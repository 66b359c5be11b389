package drive

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier means the input could not be resolved to a
	// Drive id by any of the known link shapes or the raw-id heuristic.
	ErrInvalidIdentifier = errors.New("not a valid drive id or link")

	// ErrInvalidSource means the transfer command input is neither a
	// local path, a URL/magnet, nor a resolvable drive identifier.
	ErrInvalidSource = errors.New("invalid source path or URL")

	// ErrUnsupportedSourceKind is returned when asked to download a
	// folder node directly.
	ErrUnsupportedSourceKind = errors.New("folders cannot be downloaded directly")
)

// TransferError wraps a network or API failure during an upload or download
type TransferError struct {
	Op   string // "upload" or "download"
	Name string // file name or id involved
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// RemoteOpError wraps a failure from a remote create/delete/copy/list call
type RemoteOpError struct {
	Op  string
	Err error
}

func (e *RemoteOpError) Error() string {
	return fmt.Sprintf("drive %s: %v", e.Op, e.Err)
}

func (e *RemoteOpError) Unwrap() error { return e.Err }
