// Package idgen provides id generation for glance.
package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/rs/xid"

	"github.com/verustcode/glance/consts"
)

// NewID generates a globally unique, time sortable, URL-safe 20 character id
func NewID() string {
	return xid.New().String()
}

// NewRequestID generates a unique id for request tracking
func NewRequestID() string {
	return NewID()
}

// NewUploadID generates the id of a stored document upload
func NewUploadID() string {
	return NewID()
}

// RunIDFromTime returns the default run id for a run created at t
func RunIDFromTime(t time.Time) string {
	return t.UTC().Format(consts.RunIDLayout)
}

// NewSecureSecret generates a cryptographically secure URL-safe random
// string of the given length. Used for JWT secrets.
func NewSecureSecret(length int) string {
	byteLength := (length*3 + 3) / 4
	bytes := make([]byte, byteLength)

	if _, err := rand.Read(bytes); err != nil {
		// crypto/rand does not fail on supported platforms
		return "please-generate-a-secure-random-secret"
	}

	encoded := base64.URLEncoding.EncodeToString(bytes)
	if len(encoded) > length {
		encoded = encoded[:length]
	}
	return encoded
}
