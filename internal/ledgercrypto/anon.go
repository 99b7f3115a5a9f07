package ledgercrypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// AnonymousID derives A(identity, salt) = "anon_" || first12(hex(SHA256(identity || "||" || salt))).
// The server never persists identity or salt; callers are expected to
// derive this locally per the deprecated /transparency/anonymous-id note.
func AnonymousID(identity, salt string) string {
	h := sha256.Sum256([]byte(identity + "||" + salt))
	return "anon_" + hex.EncodeToString(h[:])[:12]
}
