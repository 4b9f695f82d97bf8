// Package textenc reads and writes the text files the tester exchanges,
// which may be UTF-16LE with a BOM or plain UTF-8.
package textenc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names a supported file encoding.
type Encoding string

const (
	UTF8    Encoding = "utf-8"
	UTF16LE Encoding = "utf-16le"
)

// Parse maps a config value to an Encoding.
func Parse(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf8", "utf-8":
		return UTF8, nil
	case "utf16", "utf-16", "utf16le", "utf-16le", "unicode":
		return UTF16LE, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", s)
	}
}

// Detect inspects a byte order mark.
func Detect(b []byte) Encoding {
	if len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		return UTF16LE
	}
	return UTF8
}

// NewReader decodes r to UTF-8 honouring any BOM; input without a BOM is taken as UTF-8.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// Decode converts b to a UTF-8 string with the BOM removed.
func Decode(b []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), b)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(bytes.TrimPrefix(out, []byte("\uFEFF"))), nil
}

// Encode converts s into enc. UTF-16 output carries a BOM.
func Encode(enc Encoding, s string) ([]byte, error) {
	e := encoder(enc)
	if e == nil {
		return []byte(s), nil
	}
	out, _, err := transform.Bytes(e.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode text: %w", err)
	}
	return out, nil
}

// ReadFile reads path and returns its UTF-8 content and detected encoding.
func ReadFile(path string) (string, Encoding, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	s, err := Decode(b)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", path, err)
	}
	return s, Detect(b), nil
}

// WriteFile writes s to path in enc.
func WriteFile(path string, s string, enc Encoding) error {
	b, err := Encode(enc, s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func encoder(enc Encoding) encoding.Encoding {
	if enc == UTF16LE {
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	}
	return nil
}
