package library

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"

	"media-inspector/internal/filesystem"
)

// Fingerprint summarizes the top of the media tree: the root path and
// modification time plus every visible top-level entry name and, for
// directories, their modification times. Adding, removing or renaming
// anything at the first two levels changes it; edits deeper down may not.
func (w *Walker) Fingerprint() (string, error) {
	info, err := filesystem.StatWithRetry(w.root, w.retry)
	if err != nil {
		return "", fmt.Errorf("stat media root: %w", err)
	}

	entries, err := filesystem.ReadDirWithRetry(w.root, w.retry)
	if err != nil {
		return "", fmt.Errorf("read media root: %w", err)
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}

	writeString(h, w.root)
	writeInt(h, info.ModTime().UnixNano())

	// os.ReadDir returns entries sorted by name
	for _, entry := range entries {
		name := entry.Name()
		if skip(name) {
			continue
		}
		writeString(h, name)
		if !entry.IsDir() {
			continue
		}
		sub, err := entry.Info()
		if err != nil {
			continue
		}
		writeInt(h, sub.ModTime().UnixNano())
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeString(h hash.Hash, s string) {
	writeInt(h, int64(len(s)))
	_, _ = h.Write([]byte(s))
}

func writeInt(h hash.Hash, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, _ = h.Write(buf[:])
}
