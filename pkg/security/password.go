package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const saltSize = 16

// HashPassword derives a salted SHA-256 digest of password and encodes
// salt and digest together as a single opaque string suitable for
// storage.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("security: generate salt: %w", err)
	}
	return encodeHash(salt, digest(salt, password)), nil
}

// VerifyPassword reports whether password matches a hash produced by
// HashPassword, using a constant-time comparison of the digests.
func VerifyPassword(hash, password string) bool {
	salt, want, err := decodeHash(hash)
	if err != nil {
		return false
	}
	got := digest(salt, password)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func digest(salt []byte, password string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	return h.Sum(nil)
}

func encodeHash(salt, sum []byte) string {
	return base64.RawURLEncoding.EncodeToString(salt) + "$" + base64.RawURLEncoding.EncodeToString(sum)
}

func decodeHash(hash string) (salt, sum []byte, err error) {
	sep := -1
	for i := 0; i < len(hash); i++ {
		if hash[i] == '$' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return nil, nil, fmt.Errorf("security: malformed password hash")
	}
	salt, err = base64.RawURLEncoding.DecodeString(hash[:sep])
	if err != nil {
		return nil, nil, err
	}
	sum, err = base64.RawURLEncoding.DecodeString(hash[sep+1:])
	if err != nil {
		return nil, nil, err
	}
	return salt, sum, nil
}
