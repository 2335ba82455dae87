package domain

import "errors"

var (
	// ErrNoDeviceFound indicates no serial endpoint matched the description keyword
	ErrNoDeviceFound = errors.New("no serial device found")

	// ErrPortUnavailable indicates the serial endpoint could not be opened
	ErrPortUnavailable = errors.New("serial port unavailable")

	// ErrShortRead indicates the link delivered fewer bytes than a frame needs before the read timeout
	ErrShortRead = errors.New("short read")

	// ErrMalformedFrame indicates a frame was received but could not be decoded
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrExportWrite indicates the session history could not be written out
	ErrExportWrite = errors.New("export write failure")

	// ErrSessionNotFound indicates requested session doesn't exist in the archive
	ErrSessionNotFound = errors.New("session not found")
)

// IsDecodeError reports whether err came from decoding a single frame.
// These are the only errors a decode policy may choose to skip.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrShortRead) || errors.Is(err, ErrMalformedFrame)
}
