package invite

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// claims is the signed content of an invite token. Tokens are not single-use
// and are not persisted; validity is purely signature + expiry + room match.
type claims struct {
	RoomID    string `json:"roomId"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func sign(secret []byte, c claims) string {
	payload, _ := json.Marshal(c)
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(payload) +
		"." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify fails closed: any malformed, tampered or expired token yields
// ok=false. It never panics or returns an error.
func verify(secret []byte, token string, now time.Time) (roomID string, ok bool) {
	body, sig, found := strings.Cut(token, ".")
	if !found {
		return "", false
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return "", false
	}
	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return "", false
	}
	if c.RoomID == "" || now.Unix() >= c.ExpiresAt {
		return "", false
	}
	return c.RoomID, true
}
