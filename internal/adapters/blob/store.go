// Package blob is a content-addressed filesystem store for evidence
// payloads. Content is written once under its SHA-256 digest and never
// rewritten, which is what makes evidence integrity checks meaningful.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"carbonchain/internal/domain"
)

const refScheme = "blob://"

// Store keeps payloads at <root>/<hash[:2]>/<hash>. Two-character sharding
// keeps directories small under heavy upload volume.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root}, nil
}

// Put stores content and returns its reference and SHA-256 hex digest.
// Storing identical content twice yields the same reference.
func (s *Store) Put(content []byte) (string, string, error) {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	dir := filepath.Join(s.root, hash[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create blob shard: %w", err)
	}
	path := filepath.Join(dir, hash)
	if _, err := os.Stat(path); err == nil {
		return refScheme + hash, hash, nil
	}

	// Write through a temp file so a crashed write never leaves a partial
	// blob under the final name.
	tmp, err := os.CreateTemp(dir, "put-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("commit blob: %w", err)
	}
	return refScheme + hash, hash, nil
}

// Get returns the content behind a blob reference.
func (s *Store) Get(ref string) ([]byte, error) {
	hash, ok := ParseRef(ref)
	if !ok {
		return nil, fmt.Errorf("%w: not a blob reference: %q", domain.ErrValidation, ref)
	}
	content, err := os.ReadFile(filepath.Join(s.root, hash[:2], hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: blob %s", domain.ErrNotFound, hash)
		}
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	return content, nil
}

// ParseRef extracts the hex digest from a blob reference.
func ParseRef(ref string) (string, bool) {
	hash, ok := strings.CutPrefix(ref, refScheme)
	if !ok || len(hash) != 64 {
		return "", false
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", false
	}
	return hash, true
}
