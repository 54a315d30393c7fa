package groups

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateInviteCode returns a unique 16-character join token.
func GenerateInviteCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("groups: generate invite code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// InviteURL builds the shareable join URL for an invite code.
func InviteURL(baseURL, code string) string {
	if code == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/join-group/" + code
}

// CodeFromInviteURL extracts the invite code from a join URL. It returns an
// empty string when the URL is not a join link.
func CodeFromInviteURL(inviteURL string) string {
	const marker = "/join-group/"
	idx := strings.LastIndex(inviteURL, marker)
	if idx < 0 {
		return ""
	}
	code := inviteURL[idx+len(marker):]
	if slash := strings.IndexByte(code, '/'); slash >= 0 {
		code = code[:slash]
	}
	return strings.TrimSpace(code)
}
