package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PayloadHash computes the canonical content hash of one raw API row: the
// row is serialized as compact JSON with keys in ascending order and no HTML
// escaping, then digested with SHA-256. The result is 64 lowercase hex
// characters and is stable under key-order permutation of the input.
func PayloadHash(row map[string]string) (string, error) {
	data, err := EncodeRow(row)
	if err != nil {
		return "", fmt.Errorf("serializing row: %w", err)
	}
	return HashEncoded(data), nil
}

// HashEncoded digests an already-encoded payload. Callers that keep the
// EncodeRow output around can hash it directly instead of serializing the row
// a second time.
func HashEncoded(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// EncodeRow serializes a row deterministically, suitable both for hashing and
// for storage as the raw payload. encoding/json already emits map keys in
// sorted order with compact separators; escaping of <, > and & is disabled so
// multibyte and markup-ish values keep their literal bytes.
func EncodeRow(row map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(row); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
