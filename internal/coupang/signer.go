package coupang

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const signedDateLayout = "060102T150405Z"

// Signer produces the CEA authorization header for seller API requests
type Signer struct {
	AccessKey string
	SecretKey string
	now       func() time.Time
}

// NewSigner creates a signer using the wall clock
func NewSigner(accessKey, secretKey string) *Signer {
	return &Signer{AccessKey: accessKey, SecretKey: secretKey, now: time.Now}
}

// SignedDate formats t the way the seller API expects (yyMMddTHHmmssZ, UTC)
func SignedDate(t time.Time) string {
	return t.UTC().Format(signedDateLayout)
}

// Signature is the hex HMAC-SHA256 of signedDate+method+path+query
func Signature(secretKey, signedDate, method, path, query string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(signedDate + method + path + query))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authorization returns the header value for one request. query is the raw
// query string without the leading '?'.
func (s *Signer) Authorization(method, path, query string) string {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	date := SignedDate(now())
	return fmt.Sprintf("CEA algorithm=HmacSHA256, access-key=%s, signed-date=%s, signature=%s",
		s.AccessKey, date, Signature(s.SecretKey, date, method, path, query))
}
