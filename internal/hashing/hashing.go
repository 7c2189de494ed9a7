// Package hashing implements the deterministic fingerprinting used for all
// registry content. Digests are SHA-256, rendered as "0x" followed by 64
// lowercase hex characters. Stored hashes are never truncated; truncation is
// a display concern only.
package hashing

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"rstamp/internal/faults"
)

// DefaultMaxInputSize is the policy ceiling on hashable input. Oversized
// input is rejected before any bytes are read.
const DefaultMaxInputSize = 100 << 20 // 100 MB

const readChunkSize = 256 << 10

var hashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// IsValidHash reports whether s is a canonical 256-bit digest string.
// Used as a precondition gate before any hash is persisted or submitted.
func IsValidHash(s string) bool {
	return hashPattern.MatchString(s)
}

// HashBytes returns the canonical digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "0x" + hex.EncodeToString(sum[:])
}

// HashString returns the canonical digest of s.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// CombinedFingerprint derives one digest from multiple inputs. Inputs are
// sorted lexicographically before concatenation, so the result is independent
// of argument order.
func CombinedFingerprint(inputs ...string) string {
	sorted := make([]string, len(inputs))
	copy(sorted, inputs)
	sort.Strings(sorted)
	return HashString(strings.Join(sorted, "|"))
}

// GenerateSalt returns n random bytes hex-encoded. This is the only
// non-deterministic operation in the package and must be requested
// explicitly; nothing here salts implicitly.
func GenerateSalt(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("salt length must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Engine computes digests over streamed content under a size ceiling.
type Engine struct {
	maxInputSize int64
}

// NewEngine creates an Engine. A non-positive ceiling selects
// DefaultMaxInputSize.
func NewEngine(maxInputSize int64) *Engine {
	if maxInputSize <= 0 {
		maxInputSize = DefaultMaxInputSize
	}
	return &Engine{maxInputSize: maxInputSize}
}

// MaxInputSize returns the configured ceiling in bytes.
func (e *Engine) MaxInputSize() int64 { return e.maxInputSize }

// HashReader digests size bytes from r. The size is checked against the
// ceiling before any read happens. progress, if non-nil, receives byte-count
// percentages in the range 0-100; reported values never decrease. The context
// is checked between read chunks, so a cancelled hash stops without producing
// a digest.
func (e *Engine) HashReader(ctx context.Context, r io.Reader, size int64, progress func(pct int)) (string, error) {
	if size > e.maxInputSize {
		return "", faults.Validation("input of %d bytes exceeds the %d byte hashing limit", size, e.maxInputSize)
	}
	if size < 0 {
		return "", faults.Validation("input size must be known before hashing")
	}

	h := sha256.New()
	buf := make([]byte, readChunkSize)
	var read int64
	lastPct := -1
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(buf)
		if n > 0 {
			read += int64(n)
			if read > e.maxInputSize {
				// Caller lied about size; stop before doing further work.
				return "", faults.Validation("input exceeds the %d byte hashing limit", e.maxInputSize)
			}
			h.Write(buf[:n])
			if progress != nil && size > 0 {
				pct := int(read * 100 / size)
				if pct > 100 {
					pct = 100
				}
				if pct > lastPct {
					lastPct = pct
					progress(pct)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
	}
	if progress != nil && lastPct < 100 {
		progress(100)
	}
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile digests the file at path, applying the size ceiling against the
// file's stat size before opening a reader over its content.
func (e *Engine) HashFile(ctx context.Context, path string, progress func(pct int)) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat file '%s': %w", path, err)
	}
	if info.Size() > e.maxInputSize {
		return "", faults.Validation("file '%s' of %d bytes exceeds the %d byte hashing limit", path, info.Size(), e.maxInputSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file '%s': %w", path, err)
	}
	defer f.Close()
	return e.HashReader(ctx, f, info.Size(), progress)
}

// FileDigest bundles the three digests derived from one file.
type FileDigest struct {
	ContentHash  string `json:"content_hash"`
	MetadataHash string `json:"metadata_hash"`
	CombinedHash string `json:"combined_hash"`
}

// DigestReader produces content, metadata, and combined digests for a named
// stream. The metadata digest covers the name and size only; it deliberately
// excludes anything clock-dependent so the result stays deterministic.
func (e *Engine) DigestReader(ctx context.Context, name string, r io.Reader, size int64, progress func(pct int)) (*FileDigest, error) {
	contentHash, err := e.HashReader(ctx, r, size, progress)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}{Name: name, Size: size})
	if err != nil {
		return nil, fmt.Errorf("failed to encode file metadata: %w", err)
	}
	metadataHash := HashBytes(meta)
	return &FileDigest{
		ContentHash:  contentHash,
		MetadataHash: metadataHash,
		CombinedHash: HashString(contentHash + metadataHash),
	}, nil
}

// VerifyIntegrity compares a computed digest against an expected one,
// case-insensitively. Both must be canonical hash strings.
func VerifyIntegrity(actual, expected string) bool {
	if !IsValidHash(actual) || !IsValidHash(expected) {
		return false
	}
	return strings.EqualFold(actual, expected)
}

// FormatHash truncates a digest for display. Data paths must keep the full
// hash; this exists for presentation layers only.
func FormatHash(hash string, chars int) string {
	if hash == "" || len(hash) <= chars {
		return hash
	}
	return hash[:chars] + "..." + hash[len(hash)-8:]
}

// FormatAddress truncates an address for display, keeping both ends.
func FormatAddress(address string, chars int) string {
	if address == "" || len(address) <= chars*2 {
		return address
	}
	return address[:chars] + "..." + address[len(address)-chars:]
}
