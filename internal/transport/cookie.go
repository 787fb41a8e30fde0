package transport

import (
	"net/url"
	"strings"
)

// CookieValue returns the decoded value of the first cookie named name in a
// raw Cookie header. Pairs are split on the first "=" only, so values
// containing "=" survive, and leading whitespace around pairs is tolerated.
// The second return is false when the header is empty or no entry matches.
func CookieValue(header, name string) (string, bool) {
	if header == "" || name == "" {
		return "", false
	}
	for _, pair := range strings.Split(header, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if k != name {
			continue
		}
		if dec, err := url.QueryUnescape(v); err == nil {
			return dec, true
		}
		return v, true
	}
	return "", false
}
