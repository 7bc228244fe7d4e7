package object

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStoreUnreadable marks storage-layer failures: a missing or invalid
	// store root, I/O or permission errors, and pack indexes whose framing or
	// checksum cannot be trusted.
	ErrStoreUnreadable = errors.New("object store unreadable")

	// ErrCorruptObject marks an entry whose hash cannot be determined.
	ErrCorruptObject = errors.New("corrupt object")

	// ErrInvalidHashLength marks a hash whose byte length does not match the
	// repository's hash algorithm.
	ErrInvalidHashLength = errors.New("invalid hash length")
)

// CorruptObjectError identifies the entry that could not be read. Position
// and Offset are -1 when unknown.
type CorruptObjectError struct {
	Pack     string // pack index file name, empty for loose objects
	Path     string // loose object path, empty for packed objects
	Position int    // entry position within the pack index
	Offset   int64  // byte offset within the pack file
	Reason   string
}

func (e *CorruptObjectError) Error() string {
	var b strings.Builder
	b.WriteString("corrupt object")
	if e.Pack != "" {
		fmt.Fprintf(&b, " in %s", e.Pack)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.Position >= 0 {
		fmt.Fprintf(&b, " entry %d", e.Position)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " offset %d", e.Offset)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *CorruptObjectError) Is(target error) bool { return target == ErrCorruptObject }

func corruptEntry(position int, format string, args ...any) error {
	return &CorruptObjectError{Position: position, Offset: -1, Reason: fmt.Sprintf(format, args...)}
}

func unreadable(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrStoreUnreadable, fmt.Errorf(format, args...))
}

// withPack stamps a pack name onto a CorruptObjectError, or prefixes any
// other error with it.
func withPack(name string, err error) error {
	var corrupt *CorruptObjectError
	if errors.As(err, &corrupt) {
		corrupt.Pack = name
		return err
	}
	return fmt.Errorf("%s: %w", name, err)
}
