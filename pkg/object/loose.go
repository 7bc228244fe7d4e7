package object

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// maxLooseHeader bounds the "kind len\0" prefix; the longest valid header is
// "commit " plus a 20-digit size plus NUL.
const maxLooseHeader = 32

// looseObjects yields loose object names one fan-out directory at a time.
// Files whose names are not object-name shaped (temporary files, names of the
// other hash algorithm) are skipped.
func (s *Store) looseObjects(yield func(Hash, error) bool) {
	fanoutDirs, err := os.ReadDir(s.root)
	if err != nil {
		yield(nil, unreadable("read objects dir: %w", err))
		return
	}

	suffixLen := s.algo.HexSize() - 2
	for _, fanoutDir := range fanoutDirs {
		if !fanoutDir.IsDir() {
			continue
		}
		prefix := fanoutDir.Name()
		if !isHexComponent(prefix, 2) {
			continue
		}

		objectEntries, err := os.ReadDir(filepath.Join(s.root, prefix))
		if err != nil {
			yield(nil, unreadable("read objects fanout %s: %w", prefix, err))
			return
		}
		for _, objectEntry := range objectEntries {
			if objectEntry.IsDir() {
				continue
			}
			suffix := objectEntry.Name()
			if len(suffix) != suffixLen || strings.HasPrefix(suffix, ".") {
				continue
			}
			raw, err := hex.DecodeString(prefix + suffix)
			if err != nil {
				yield(nil, &CorruptObjectError{
					Path:     filepath.Join(prefix, suffix),
					Position: -1,
					Offset:   -1,
					Reason:   "loose object name is not hex",
				})
				return
			}
			if !yield(Hash(raw), nil) {
				return
			}
		}
	}
}

func isHexComponent(s string, expectedLen int) bool {
	if len(s) != expectedLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// looseKind inflates only the envelope header of a loose object.
func (s *Store) looseKind(h Hash) (ObjectKind, error) {
	path := s.loosePath(h)
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return "", &CorruptObjectError{Path: path, Position: -1, Offset: -1, Reason: fmt.Sprintf("zlib header: %v", err)}
	}
	defer zr.Close()

	header, err := bufio.NewReaderSize(io.LimitReader(zr, maxLooseHeader), maxLooseHeader).ReadString(0)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("no NUL within %d bytes", maxLooseHeader)
		}
		return "", &CorruptObjectError{Path: path, Position: -1, Offset: -1, Reason: fmt.Sprintf("read header: %v", err)}
	}

	kindName, size, ok := strings.Cut(strings.TrimSuffix(header, "\x00"), " ")
	if !ok {
		return "", &CorruptObjectError{Path: path, Position: -1, Offset: -1, Reason: fmt.Sprintf("invalid header %q", header)}
	}
	if _, err := strconv.ParseUint(size, 10, 64); err != nil {
		return "", &CorruptObjectError{Path: path, Position: -1, Offset: -1, Reason: fmt.Sprintf("invalid size %q", size)}
	}
	kind, err := ParseObjectKind(kindName)
	if err != nil {
		return "", &CorruptObjectError{Path: path, Position: -1, Offset: -1, Reason: err.Error()}
	}
	return kind, nil
}
