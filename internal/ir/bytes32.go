package ir

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Hash is a 32-byte characterization fingerprint supplied by the caller.
// The registry never computes or interprets it.
type Hash [32]byte

// String returns the 0x-prefixed hex form.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether every byte is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash parses a 64-digit hex string, with or without 0x prefix.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 64 {
		return h, fmt.Errorf("hash must be 64 hex digits, got %d", len(raw))
	}
	if _, err := hex.Decode(h[:], []byte(raw)); err != nil {
		return Hash{}, fmt.Errorf("invalid hash: %w", err)
	}
	return h, nil
}

// HashFromBytes copies b into a Hash. b must be exactly 32 bytes.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != len(h) {
		return h, fmt.Errorf("hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// EncodeBytes32String packs a short UTF-8 string into a Hash, left-aligned and
// zero padded. At most 31 bytes fit so the value stays null-terminated.
func EncodeBytes32String(s string) (Hash, error) {
	var h Hash
	if !utf8.ValidString(s) {
		return h, fmt.Errorf("bytes32 string must be valid UTF-8")
	}
	if len(s) > 31 {
		return h, fmt.Errorf("bytes32 string too long: %d bytes (max 31)", len(s))
	}
	copy(h[:], s)
	return h, nil
}

// DecodeBytes32String reverses EncodeBytes32String.
func DecodeBytes32String(h Hash) (string, error) {
	n := bytes.IndexByte(h[:], 0)
	if n < 0 {
		return "", fmt.Errorf("invalid bytes32 string: missing null terminator")
	}
	s := string(h[:n])
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("invalid bytes32 string: not UTF-8")
	}
	return s, nil
}
