package dashboard

import (
	"math/rand/v2"
	"strings"
)

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSlug turns a client name into "<name>-<4 random chars>", e.g.
// "Acme" -> "acme-k3x9".
func GenerateSlug(clientName string) string {
	return Slugify(clientName) + "-" + randomSuffix(4)
}

func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "client"
	}
	return out
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = slugAlphabet[rand.IntN(len(slugAlphabet))]
	}
	return string(buf)
}
