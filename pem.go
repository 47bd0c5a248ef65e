package keyboxgen

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEncoding is wrapped by DecodeEntry when a normalized PEM body is
// not valid standard base64.
var ErrInvalidEncoding = errors.New("invalid base64 encoding")

const (
	pemBeginPrefix = "-----BEGIN"
	pemEndPrefix   = "-----END"
)

// NormalizePEM strips PEM delimiter lines from text and concatenates the
// remaining lines, in order, with no separator.
func NormalizePEM(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, pemBeginPrefix) || strings.HasPrefix(line, pemEndPrefix) {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

// DecodedEntry is the outcome of decoding one captured credential. The
// emitter renders Bytes only when the entry is Usable.
type DecodedEntry struct {
	Present bool
	Bytes   []byte
	Err     error
}

// Usable reports whether the entry exists and decoded cleanly.
func (e DecodedEntry) Usable() bool {
	return e.Present && e.Err == nil
}

// DecodeEntry base64-decodes a normalized PEM body after trimming
// surrounding whitespace. A decode failure is reported in the returned
// entry, never as a panic.
func DecodeEntry(normalized string) DecodedEntry {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(normalized))
	if err != nil {
		return DecodedEntry{Present: true, Err: fmt.Errorf("%w: %v", ErrInvalidEncoding, err)}
	}
	return DecodedEntry{Present: true, Bytes: data}
}

// DecodePEMText normalizes and decodes a raw captured text block.
func DecodePEMText(text string) DecodedEntry {
	return DecodeEntry(NormalizePEM(text))
}
