package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/c2smotors/showroom/internal/transport"
)

func newCSRFToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// verifyCSRF checks the double-submit pair: the token cookie must match the
// header the page script echoes back.
func (m *Main) verifyCSRF(r *http.Request) bool {
	cookie, ok := transport.CookieValue(r.Header.Get("Cookie"), m.opts.CSRFCookie)
	if !ok || cookie == "" {
		return false
	}
	header := r.Header.Get(transport.CSRFHeader)
	if header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) == 1
}
