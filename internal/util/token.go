package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HmacSHA256 signs data with the given secret.
func HmacSHA256(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// ConstantTimeEqual compares two strings without leaking length of the match.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SignUserToken mints a "userID.signature" credential. The authentication
// system that issues these lives outside this service; the helper exists for
// it and for tests.
func SignUserToken(secret, userID string) string {
	return userID + "." + HmacSHA256(secret, userID)
}

// VerifyUserToken checks the signature and returns the embedded user ID.
func VerifyUserToken(secret, token string) (string, bool) {
	userID, signature, found := strings.Cut(token, ".")
	if !found || userID == "" {
		return "", false
	}
	if !ConstantTimeEqual(signature, HmacSHA256(secret, userID)) {
		return "", false
	}
	return userID, true
}
