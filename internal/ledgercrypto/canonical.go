// Package ledgercrypto implements the ledger's hashing primitives:
// canonical JSON, chain hashing, Merkle node hashing, and anonymous-ID
// derivation. Every verification property in the system depends on
// these producing identical output across runs and platforms.
package ledgercrypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CanonicalJSON serializes v with object keys sorted lexicographically
// at every depth, UTF-8, no insignificant whitespace. It relies on two
// guarantees of encoding/json: map[string]interface{} keys are always
// emitted in sorted order, and json.Number preserves a decoded
// number's original textual form across a decode/re-encode round
// trip (avoiding float64 precision loss for large integers).
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}

	// json.Encoder.Encode appends a trailing newline; canonical form
	// has no insignificant whitespace.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// CanonicalHash computes H(x) = SHA256(canonical_json(x)).
func CanonicalHash(v interface{}) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ChainHash computes Hc(data, prev) = SHA256(canonical_json(data) || prev)
// with prev as its ASCII hex representation.
func ChainHash(data interface{}, prevHex string) (string, error) {
	payload, err := CanonicalJSON(data)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(prevHex))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NodeHash computes Hn(l, r) = SHA256(l || r) over the ASCII hex
// concatenation of two sibling hashes, used by the Merkle service.
func NodeHash(left, right string) string {
	h := sha256.New()
	h.Write([]byte(left))
	h.Write([]byte(right))
	return hex.EncodeToString(h.Sum(nil))
}

// ZeroHash is the all-zeros previous-hash value for the genesis event.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"
