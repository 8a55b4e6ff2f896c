package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// TokenLength is the length in characters of session and reset tokens:
// 32 cryptographically random bytes, hex encoded.
const TokenLength = 64

// NewToken generates an opaque, unguessable bearer token
func NewToken() (string, error) {
	buf := make([]byte, TokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IsWellFormedToken reports whether a candidate token has the shape this
// service issues. Malformed input is rejected before any storage lookup.
func IsWellFormedToken(token string) bool {
	if len(token) != TokenLength {
		return false
	}
	for _, c := range token {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ClassifyUserAgent derives a coarse device type and browser name from the
// User-Agent header for the "manage your devices" view. Unrecognized agents
// classify as unknown; no parsing library is warranted for this granularity.
func ClassifyUserAgent(userAgent string) (deviceType, browser string) {
	deviceType = "unknown"
	browser = "unknown"
	if userAgent == "" {
		return
	}

	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		deviceType = "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		deviceType = "mobile"
	case strings.Contains(ua, "mozilla") || strings.Contains(ua, "opera"):
		deviceType = "desktop"
	}

	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge"):
		browser = "edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		browser = "opera"
	case strings.Contains(ua, "chrome"):
		browser = "chrome"
	case strings.Contains(ua, "safari"):
		browser = "safari"
	case strings.Contains(ua, "firefox"):
		browser = "firefox"
	}

	return
}
