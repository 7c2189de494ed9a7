package hashing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rstamp/internal/faults"
)

func TestHashStringCanonicalFormat(t *testing.T) {
	h := HashString("hello world")
	assert.True(t, IsValidHash(h), "digest is canonical")
	assert.True(t, strings.HasPrefix(h, "0x"))
	assert.Len(t, h, 66)

	// SHA-256 of "hello world" is a known vector
	assert.Equal(t, "0xb94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", h)
}

func TestHashStringStable(t *testing.T) {
	assert.Equal(t, HashString("content"), HashString("content"), "same input, same digest")
	assert.NotEqual(t, HashString("content"), HashString("Content"), "different input, different digest")
}

func TestIsValidHashRejectsMalformed(t *testing.T) {
	valid := HashString("x")
	cases := map[string]string{
		"empty":          "",
		"no prefix":      valid[2:],
		"short":          valid[:65],
		"long":           valid + "a",
		"non-hex":        "0x" + strings.Repeat("g", 64),
		"bare prefix":    "0x",
		"embedded space": valid[:30] + " " + valid[31:],
	}
	for name, s := range cases {
		assert.False(t, IsValidHash(s), name)
	}
	assert.True(t, IsValidHash(valid))
	assert.True(t, IsValidHash("0x"+strings.Repeat("A", 64)), "uppercase hex is accepted")
}

func TestCombinedFingerprintOrderIndependent(t *testing.T) {
	a := CombinedFingerprint("alpha", "beta", "gamma")
	b := CombinedFingerprint("gamma", "alpha", "beta")
	assert.Equal(t, a, b, "argument order must not matter")
	assert.True(t, IsValidHash(a))

	c := CombinedFingerprint("alpha", "beta")
	assert.NotEqual(t, a, c, "different input sets differ")
}

func TestGenerateSalt(t *testing.T) {
	s1, err := GenerateSalt(16)
	require.NoError(t, err)
	assert.Len(t, s1, 32, "hex doubles the byte length")

	s2, err := GenerateSalt(16)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2, "salts are random")

	_, err = GenerateSalt(0)
	assert.Error(t, err)
	_, err = GenerateSalt(-5)
	assert.Error(t, err)
}

func TestHashReaderMatchesHashBytes(t *testing.T) {
	data := bytes.Repeat([]byte("abc123"), 100000) // larger than one read chunk
	e := NewEngine(0)

	h, err := e.HashReader(context.Background(), bytes.NewReader(data), int64(len(data)), nil)
	require.NoError(t, err)
	assert.Equal(t, HashBytes(data), h)
}

func TestHashReaderRejectsOversizeBeforeReading(t *testing.T) {
	e := NewEngine(1024)

	r := &countingReader{r: bytes.NewReader(make([]byte, 2048))}
	_, err := e.HashReader(context.Background(), r, 2048, nil)
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))
	assert.Zero(t, r.reads, "oversize input must be rejected before any read")
}

func TestHashReaderRejectsUnderstatedSize(t *testing.T) {
	e := NewEngine(1024)

	// Declared size fits, actual content does not.
	_, err := e.HashReader(context.Background(), bytes.NewReader(make([]byte, 4096)), 512, nil)
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))
}

func TestHashReaderProgressMonotonic(t *testing.T) {
	data := make([]byte, 3*readChunkSize)
	e := NewEngine(0)

	var reported []int
	_, err := e.HashReader(context.Background(), bytes.NewReader(data), int64(len(data)), func(pct int) {
		reported = append(reported, pct)
	})
	require.NoError(t, err)
	require.NotEmpty(t, reported)
	for i := 1; i < len(reported); i++ {
		assert.Greater(t, reported[i], reported[i-1], "progress never repeats or decreases")
		assert.LessOrEqual(t, reported[i], 100)
	}
	assert.Equal(t, 100, reported[len(reported)-1], "progress ends at 100")
}

func TestHashReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(0)
	_, err := e.HashReader(ctx, bytes.NewReader([]byte("data")), 4, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDigestReaderDeterministic(t *testing.T) {
	e := NewEngine(0)

	d1, err := e.DigestReader(context.Background(), "paper.pdf", strings.NewReader("findings"), 8, nil)
	require.NoError(t, err)
	d2, err := e.DigestReader(context.Background(), "paper.pdf", strings.NewReader("findings"), 8, nil)
	require.NoError(t, err)
	assert.Equal(t, d1, d2, "same name and content, same digests")

	assert.True(t, IsValidHash(d1.ContentHash))
	assert.True(t, IsValidHash(d1.MetadataHash))
	assert.True(t, IsValidHash(d1.CombinedHash))
	assert.Equal(t, HashString("findings"), d1.ContentHash)
	assert.Equal(t, HashString(d1.ContentHash+d1.MetadataHash), d1.CombinedHash)

	// Renaming the file changes metadata and combined, not content
	d3, err := e.DigestReader(context.Background(), "renamed.pdf", strings.NewReader("findings"), 8, nil)
	require.NoError(t, err)
	assert.Equal(t, d1.ContentHash, d3.ContentHash)
	assert.NotEqual(t, d1.MetadataHash, d3.MetadataHash)
	assert.NotEqual(t, d1.CombinedHash, d3.CombinedHash)
}

func TestVerifyIntegrity(t *testing.T) {
	h := HashString("payload")
	assert.True(t, VerifyIntegrity(h, h))
	assert.True(t, VerifyIntegrity(h, "0x"+strings.ToUpper(h[2:])), "comparison is case-insensitive")
	assert.False(t, VerifyIntegrity(h, HashString("other")))
	assert.False(t, VerifyIntegrity("not-a-hash", h))
	assert.False(t, VerifyIntegrity(h, ""))
}

func TestFormatHash(t *testing.T) {
	h := HashString("display")
	short := FormatHash(h, 10)
	assert.Equal(t, h[:10]+"..."+h[len(h)-8:], short)
	assert.Equal(t, "", FormatHash("", 10))
	assert.Equal(t, "abc", FormatHash("abc", 10), "short values pass through")
}

func TestFormatAddress(t *testing.T) {
	addr := "0x" + strings.Repeat("ab", 32)
	short := FormatAddress(addr, 6)
	assert.Equal(t, addr[:6]+"..."+addr[len(addr)-6:], short)
	assert.Equal(t, "0xabc", FormatAddress("0xabc", 6), "short values pass through")
}

// countingReader counts Read calls to prove pre-read rejection.
type countingReader struct {
	r     *bytes.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}
