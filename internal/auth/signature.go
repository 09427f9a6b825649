package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// CanonicalSignature computes the hex SHA-256 over a merchant request's
// canonical form: the signature field itself is dropped, the remaining keys
// are sorted byte-wise, empty values are skipped, and the rest are joined as
// key=value pairs with '&'. No secret enters the hash; trust comes from the
// merchant credentials carried alongside the request.
func CanonicalSignature(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := fields[k]
		if v == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the canonical signature and compares it against
// the presented one in constant time.
func VerifySignature(fields map[string]string, presented string) bool {
	if presented == "" {
		return false
	}
	expected := CanonicalSignature(fields)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(presented))) == 1
}
